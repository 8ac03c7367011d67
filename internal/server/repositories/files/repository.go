// Package files declares the row-store contract for encrypted file records
// and its PostgreSQL and SQLite implementations.
package files

import (
	"context"

	"github.com/dmitrijs2005/smartids/internal/server/models"
)

// Repository persists file records. Lookups of absent rows return
// common.ErrorNotFound.
type Repository interface {
	// Create inserts a new file record. ID and CreatedAt are set by the caller.
	Create(ctx context.Context, file *models.File) error

	// GetByID returns the full record, key material included.
	GetByID(ctx context.Context, id string) (*models.File, error)

	// GetByIDAndOwner returns the record only when it belongs to ownerID.
	// A foreign file is reported exactly like a missing one.
	GetByIDAndOwner(ctx context.Context, id, ownerID string) (*models.File, error)

	// ListByOwner returns the owner's files, newest first, without key material.
	ListByOwner(ctx context.Context, ownerID string) ([]models.FileInfo, error)
}
