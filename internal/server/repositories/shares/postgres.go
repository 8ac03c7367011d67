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

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, share *models.Share) error {
	query := `
		INSERT INTO shares (id, file_id, token, expires_at, max_downloads, downloads, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	res, err := r.db.ExecContext(ctx, query,
		share.ID, share.FileID, share.Token, share.ExpiresAt, share.MaxDownloads, share.Downloads, share.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.AffectedOne(res)
}

// Consume relies on the row lock taken by UPDATE: concurrent callers for the
// same token are serialized and re-evaluate the predicate after the winner
// commits.
func (r *PostgresRepository) Consume(ctx context.Context, token string, now time.Time) (string, error) {
	query := `
		UPDATE shares
		SET downloads = downloads + 1
		WHERE token = $1 AND downloads < max_downloads AND expires_at > $2
		RETURNING file_id
	`
	var fileID string
	if err := r.db.QueryRowContext(ctx, query, token, now).Scan(&fileID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotConsumable
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return fileID, nil
}

func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*models.Share, error) {
	query := `
		SELECT id, file_id, token, expires_at, max_downloads, downloads, created_at
		FROM shares
		WHERE token = $1
	`
	var s models.Share
	err := r.db.QueryRowContext(ctx, query, token).
		Scan(&s.ID, &s.FileID, &s.Token, &s.ExpiresAt, &s.MaxDownloads, &s.Downloads, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &s, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.ShareInfo, error) {
	query := `
		SELECT s.id, s.token, s.expires_at, s.max_downloads, s.downloads, f.filename_original
		FROM shares s
		JOIN files f ON f.id = s.file_id
		WHERE f.owner_id = $1
		ORDER BY s.created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select shares: %w", err)
	}
	defer rows.Close()

	result := make([]models.ShareInfo, 0)
	for rows.Next() {
		var item models.ShareInfo
		if err := rows.Scan(&item.ID, &item.Token, &item.ExpiresAt, &item.MaxDownloads, &item.Downloads, &item.OriginalName); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
