package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/smartids/internal/common"
	"github.com/dmitrijs2005/smartids/internal/dbx"
	"github.com/dmitrijs2005/smartids/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, file *models.File) error {
	query := `
		INSERT INTO files (id, owner_id, filename_original, storage_path, key_enc, iv, hmac, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	keyEnc, iv, mac := keyColumns(file)

	var expires sql.NullTime
	if file.ExpiresAt != nil {
		expires = sql.NullTime{Time: *file.ExpiresAt, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, query,
		file.ID, file.OwnerID, file.OriginalName, file.StorageKey, keyEnc, iv, mac, file.CreatedAt, expires)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.AffectedOne(res)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	query := `
		SELECT id, owner_id, filename_original, storage_path, key_enc, iv, hmac, created_at, expires_at
		FROM files
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*models.File, error) {
	query := `
		SELECT id, owner_id, filename_original, storage_path, key_enc, iv, hmac, created_at, expires_at
		FROM files
		WHERE id = $1 AND owner_id = $2
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id, ownerID))
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.File, error) {
	var (
		f               models.File
		keyEnc, iv, mac string
		expires         sql.NullTime
	)
	if err := row.Scan(&f.ID, &f.OwnerID, &f.OriginalName, &f.StorageKey, &keyEnc, &iv, &mac, &f.CreatedAt, &expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if expires.Valid {
		f.ExpiresAt = &expires.Time
	}
	if err := decodeKeyColumns(&f, keyEnc, iv, mac); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.FileInfo, error) {
	query := `
		SELECT id, filename_original, created_at, expires_at
		FROM files
		WHERE owner_id = $1
		ORDER BY created_at DESC
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
			expires sql.NullTime
		)
		if err := rows.Scan(&item.ID, &item.OriginalName, &item.CreatedAt, &expires); err != nil {
			return nil, err
		}
		if expires.Valid {
			item.ExpiresAt = &expires.Time
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
