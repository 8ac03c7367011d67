// Package shares declares the row-store contract for share links and its
// PostgreSQL and SQLite implementations.
package shares

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/smartids/internal/server/models"
)

// ErrNotConsumable is returned by Consume when no active share matched the
// token. Callers re-read the row to tell missing, expired and exhausted apart.
var ErrNotConsumable = errors.New("share not consumable")

// Repository persists share links.
type Repository interface {
	// Create inserts a share. ID, Token and CreatedAt are set by the caller.
	Create(ctx context.Context, share *models.Share) error

	// Consume atomically increments the download counter of the share
	// identified by token, provided it is unexpired at now and below its
	// download limit. It returns the shared file's id.
	Consume(ctx context.Context, token string, now time.Time) (string, error)

	// GetByToken returns the share or common.ErrorNotFound.
	GetByToken(ctx context.Context, token string) (*models.Share, error)

	// ListByOwner returns shares of files owned by ownerID, newest first,
	// joined with the file's original name. State is left for the caller.
	ListByOwner(ctx context.Context, ownerID string) ([]models.ShareInfo, error)
}
