// Package blobstore keeps encrypted file bodies outside the row store.
// Bodies are addressed by opaque storage ids of the form YYYY/MM/DD/<uuid>.
package blobstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/smartids/internal/common"
	"github.com/dmitrijs2005/smartids/internal/logging"
	"github.com/dmitrijs2005/smartids/internal/server/config"
	"github.com/google/uuid"
)

// Store persists opaque ciphertext blobs.
//
// Errors: common.ErrStorage for backend failures, common.ErrBlobNotFound
// when the id names nothing, common.ErrorValidation for malformed ids.
type Store interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
}

// NewStorageKey returns a fresh random storage id dated at t.
func NewStorageKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%04d/%02d/%02d/%s", t.Year(), int(t.Month()), t.Day(), uuid.NewString())
}

// ValidateKey reports whether id has the shape produced by NewStorageKey.
// Anything else, including traversal attempts, is rejected.
func ValidateKey(id string) error {
	parts := strings.Split(id, "/")
	if len(parts) != 4 {
		return fmt.Errorf("%w: malformed storage id", common.ErrorValidation)
	}
	for i, n := range []int{4, 2, 2} {
		if len(parts[i]) != n || !allDigits(parts[i]) {
			return fmt.Errorf("%w: malformed storage id", common.ErrorValidation)
		}
	}
	u, err := uuid.Parse(parts[3])
	if err != nil || u.String() != parts[3] {
		return fmt.Errorf("%w: malformed storage id", common.ErrorValidation)
	}
	return nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// New builds the store selected by cfg.StorageBackend.
func New(ctx context.Context, cfg *config.Config, log logging.Logger) (Store, error) {
	switch cfg.StorageBackend {
	case config.StorageDisk, "":
		return NewDiskStore(cfg.UploadDir, log)
	case config.StorageS3:
		return NewS3Store(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}
