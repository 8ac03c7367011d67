// Package services contains the server-side orchestration: FileService
// encrypts and stores uploads and serves share downloads, ShareService
// issues and consumes share links.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/smartids/internal/common"
	"github.com/dmitrijs2005/smartids/internal/cryptox"
	"github.com/dmitrijs2005/smartids/internal/dbx"
	"github.com/dmitrijs2005/smartids/internal/logging"
	"github.com/dmitrijs2005/smartids/internal/server/blobstore"
	"github.com/dmitrijs2005/smartids/internal/server/config"
	"github.com/dmitrijs2005/smartids/internal/server/models"
	"github.com/dmitrijs2005/smartids/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// KeyWrapper wraps per-file keys under the master key. Implemented by
// *cryptox.KeyWrapper.
type KeyWrapper interface {
	Ready() error
	Wrap(fileKey []byte) ([]byte, error)
	Unwrap(blob []byte) ([]byte, error)
}

// FileService orchestrates encryption, blob storage and the row store.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       blobstore.Store
	keys        KeyWrapper
	shares      *ShareService
	log         logging.Logger

	maxUploadSize int64

	now func() time.Time
}

func NewFileService(db *sql.DB, m repomanager.RepositoryManager, store blobstore.Store, keys KeyWrapper,
	shares *ShareService, cfg *config.Config, log logging.Logger) *FileService {
	return &FileService{
		db:            db,
		repomanager:   m,
		store:         store,
		keys:          keys,
		shares:        shares,
		log:           log,
		maxUploadSize: cfg.MaxUploadSize,
		now:           time.Now,
	}
}

// Upload encrypts data under a fresh file key, stores the ciphertext,
// wraps the key and persists the record, in that order. When a step after
// the blob write fails the blob is deleted again.
func (s *FileService) Upload(ctx context.Context, ownerID, originalName string, data []byte) (*models.File, error) {
	originalName = strings.TrimSpace(originalName)
	if ownerID == "" || originalName == "" {
		return nil, fmt.Errorf("%w: owner and file name are required", common.ErrorValidation)
	}
	if s.maxUploadSize > 0 && int64(len(data)) > s.maxUploadSize {
		return nil, common.ErrFileTooLarge
	}
	if err := s.keys.Ready(); err != nil {
		s.log.Error(ctx, "upload refused: master key unusable")
		return nil, common.ErrConfig
	}

	fileKey := cryptox.GenerateFileKey()
	defer common.WipeByteArray(fileKey)
	iv := cryptox.GenerateIV()

	ciphertext, tag, err := cryptox.EncryptFile(data, fileKey, iv)
	if err != nil {
		s.log.Error(ctx, "encrypt failed", "error", err)
		return nil, common.ErrorInternal
	}

	storageID, err := s.store.Put(ctx, ciphertext)
	if err != nil {
		s.log.Error(ctx, "blob write failed", "error", err)
		return nil, translate(err)
	}

	wrapped, err := s.keys.Wrap(fileKey)
	if err != nil {
		s.log.Error(ctx, "key wrap failed", "error", err)
		s.discardBlob(ctx, storageID)
		return nil, translate(err)
	}

	file := &models.File{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		OriginalName: originalName,
		StorageKey:   storageID,
		WrappedKey:   wrapped,
		IV:           iv,
		HMAC:         tag,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repomanager.Files(s.db).Create(ctx, file); err != nil {
		s.log.Error(ctx, "file record insert failed", "storage_id", storageID, "error", err)
		s.discardBlob(ctx, storageID)
		return nil, common.ErrorInternal
	}

	s.log.Info(ctx, "file uploaded", "file_id", file.ID, "owner_id", ownerID, "size", len(data))
	return file, nil
}

// discardBlob removes an unreferenced blob. It runs detached from ctx so a
// cancelled request still cleans up.
func (s *FileService) discardBlob(ctx context.Context, storageID string) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.store.Delete(dctx, storageID); err != nil {
		s.log.Warn(ctx, "orphaned blob left behind", "storage_id", storageID, "error", err)
	}
}

// ListOwned returns ownerID's files newest first, without key material.
func (s *FileService) ListOwned(ctx context.Context, ownerID string) ([]models.FileInfo, error) {
	list, err := s.repomanager.Files(s.db).ListByOwner(ctx, ownerID)
	if err != nil {
		s.log.Error(ctx, "list files failed", "owner_id", ownerID, "error", err)
		return nil, common.ErrorInternal
	}
	return list, nil
}

// DownloadViaShare consumes one use of the share and returns the decrypted
// file with its original name. The whole chain runs in one transaction;
// any failure rolls the spend back.
func (s *FileService) DownloadViaShare(ctx context.Context, token string) ([]byte, string, error) {
	var (
		plaintext []byte
		name      string
	)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		file, err := s.shares.ValidateAndConsume(ctx, tx, token)
		if err != nil {
			return err
		}

		ciphertext, err := s.store.Get(ctx, file.StorageKey)
		if err != nil {
			// A malformed storage path is corrupt server data, not a bad request.
			if errors.Is(err, common.ErrorValidation) {
				return fmt.Errorf("file %s: storage path rejected (%v): %w", file.ID, err, common.ErrorInternal)
			}
			return fmt.Errorf("file %s: %w", file.ID, err)
		}

		fileKey, err := s.keys.Unwrap(file.WrappedKey)
		if err != nil {
			return fmt.Errorf("file %s: unwrap: %w", file.ID, err)
		}
		defer common.WipeByteArray(fileKey)

		plaintext, err = cryptox.DecryptFile(ciphertext, fileKey, file.IV, file.HMAC)
		if err != nil {
			return fmt.Errorf("file %s: decrypt: %w", file.ID, err)
		}
		name = file.OriginalName
		return nil
	})
	if err != nil {
		out := translate(err)
		switch out {
		case common.ErrorNotFound, common.ErrShareExpired, common.ErrShareExhausted:
			s.log.Info(ctx, "share download refused", "reason", out)
		default:
			s.log.Error(ctx, "share download failed", "error", err)
		}
		return nil, "", out
	}

	s.log.Info(ctx, "share download served", "size", len(plaintext))
	return plaintext, name, nil
}

// boundaryErrors are passed to callers as-is; everything else collapses
// into common.ErrorInternal.
var boundaryErrors = []error{
	common.ErrorValidation,
	common.ErrorNotFound,
	common.ErrShareExpired,
	common.ErrShareExhausted,
	common.ErrBlobNotFound,
	common.ErrFileTooLarge,
	common.ErrConfig,
	common.ErrIntegrity,
	common.ErrStorage,
}

// translate maps an internal error onto the caller-facing taxonomy.
// A padding error behind a valid tag means corrupt data and is reported as
// an integrity failure.
func translate(err error) error {
	for _, target := range boundaryErrors {
		if errors.Is(err, target) {
			return target
		}
	}
	if errors.Is(err, common.ErrFormat) {
		return common.ErrIntegrity
	}
	return common.ErrorInternal
}
