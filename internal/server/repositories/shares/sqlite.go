package shares

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/smartids/internal/common"
	"github.com/dmitrijs2005/smartids/internal/dbx"
	"github.com/dmitrijs2005/smartids/internal/server/models"
)

// SQLiteRepository stores timestamps as unix milliseconds so the expiry
// predicate compares integers.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, share *models.Share) error {
	query := `
		INSERT INTO shares (id, file_id, token, expires_at, max_downloads, downloads, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, query,
		share.ID, share.FileID, share.Token, share.ExpiresAt.UnixMilli(),
		share.MaxDownloads, share.Downloads, share.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.AffectedOne(res)
}

// Consume takes the database write lock with its UPDATE; SQLite admits a
// single writer, so concurrent consumers cannot both pass the predicate.
func (r *SQLiteRepository) Consume(ctx context.Context, token string, now time.Time) (string, error) {
	query := `
		UPDATE shares
		SET downloads = downloads + 1
		WHERE token = ? AND downloads < max_downloads AND expires_at > ?
		RETURNING file_id
	`
	var fileID string
	if err := r.db.QueryRowContext(ctx, query, token, now.UnixMilli()).Scan(&fileID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotConsumable
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return fileID, nil
}

func (r *SQLiteRepository) GetByToken(ctx context.Context, token string) (*models.Share, error) {
	query := `
		SELECT id, file_id, token, expires_at, max_downloads, downloads, created_at
		FROM shares
		WHERE token = ?
	`
	var (
		s                models.Share
		expires, created int64
	)
	err := r.db.QueryRowContext(ctx, query, token).
		Scan(&s.ID, &s.FileID, &s.Token, &expires, &s.MaxDownloads, &s.Downloads, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	s.ExpiresAt = time.UnixMilli(expires).UTC()
	s.CreatedAt = time.UnixMilli(created).UTC()
	return &s, nil
}

func (r *SQLiteRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.ShareInfo, error) {
	query := `
		SELECT s.id, s.token, s.expires_at, s.max_downloads, s.downloads, f.filename_original
		FROM shares s
		JOIN files f ON f.id = s.file_id
		WHERE f.owner_id = ?
		ORDER BY s.created_at DESC, s.rowid DESC
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select shares: %w", err)
	}
	defer rows.Close()

	result := make([]models.ShareInfo, 0)
	for rows.Next() {
		var (
			item    models.ShareInfo
			expires int64
		)
		if err := rows.Scan(&item.ID, &item.Token, &expires, &item.MaxDownloads, &item.Downloads, &item.OriginalName); err != nil {
			return nil, err
		}
		item.ExpiresAt = time.UnixMilli(expires).UTC()
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
