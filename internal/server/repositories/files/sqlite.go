package files

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

// SQLiteRepository implements Repository for the embedded store.
// Timestamps are stored as unix milliseconds.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, file *models.File) error {
	query := `
		INSERT INTO files (id, owner_id, filename_original, storage_path, key_enc, iv, hmac, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	keyEnc, iv, mac := keyColumns(file)

	res, err := r.db.ExecContext(ctx, query,
		file.ID, file.OwnerID, file.OriginalName, file.StorageKey, keyEnc, iv, mac,
		file.CreatedAt.UnixMilli(), nullMillis(file.ExpiresAt))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.AffectedOne(res)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	query := `
		SELECT id, owner_id, filename_original, storage_path, key_enc, iv, hmac, created_at, expires_at
		FROM files
		WHERE id = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteRepository) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*models.File, error) {
	query := `
		SELECT id, owner_id, filename_original, storage_path, key_enc, iv, hmac, created_at, expires_at
		FROM files
		WHERE id = ? AND owner_id = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id, ownerID))
}

func (r *SQLiteRepository) scanOne(row *sql.Row) (*models.File, error) {
	var (
		f               models.File
		keyEnc, iv, mac string
		created         int64
		expires         sql.NullInt64
	)
	if err := row.Scan(&f.ID, &f.OwnerID, &f.OriginalName, &f.StorageKey, &keyEnc, &iv, &mac, &created, &expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	f.CreatedAt = time.UnixMilli(created).UTC()
	f.ExpiresAt = timeFromMillis(expires)
	if err := decodeKeyColumns(&f, keyEnc, iv, mac); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *SQLiteRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.FileInfo, error) {
	query := `
		SELECT id, filename_original, created_at, expires_at
		FROM files
		WHERE owner_id = ?
		ORDER BY created_at DESC, rowid DESC
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	result := make([]models.FileInfo, 0)
	for rows.Next() {
		var (
			item    models.FileInfo
			created int64
			expires sql.NullInt64
		)
		if err := rows.Scan(&item.ID, &item.OriginalName, &created, &expires); err != nil {
			return nil, err
		}
		item.CreatedAt = time.UnixMilli(created).UTC()
		item.ExpiresAt = timeFromMillis(expires)
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func timeFromMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}
