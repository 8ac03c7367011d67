package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/smartids/internal/common"
	"github.com/dmitrijs2005/smartids/internal/filex"
	"github.com/dmitrijs2005/smartids/internal/logging"
)

// DiskStore keeps blobs as files under a root directory.
type DiskStore struct {
	root string
	log  logging.Logger
	now  func() time.Time
}

// NewDiskStore creates root if needed.
func NewDiskStore(root string, log logging.Logger) (*DiskStore, error) {
	abs, err := filex.EnsureDir(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return &DiskStore{root: abs, log: log, now: time.Now}, nil
}

func (s *DiskStore) path(id string) string {
	return filepath.Join(s.root, filepath.FromSlash(id))
}

func (s *DiskStore) Put(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := NewStorageKey(s.now())
	if err := filex.WriteFileAtomic(s.path(id), data, 0o600); err != nil {
		s.log.Error(ctx, "disk write failed", "storage_id", id, "error", err)
		return "", fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return id, nil
}

func (s *DiskStore) Get(ctx context.Context, id string) ([]byte, error) {
	if err := ValidateKey(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.ErrBlobNotFound
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return data, nil
}

func (s *DiskStore) Delete(ctx context.Context, id string) error {
	if err := ValidateKey(id); err != nil {
		return err
	}
	if err := os.Remove(s.path(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return common.ErrBlobNotFound
		}
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return nil
}
