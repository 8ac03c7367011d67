package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/smartids/internal/common"
	"github.com/dmitrijs2005/smartids/internal/dbx"
	"github.com/dmitrijs2005/smartids/internal/server/blobstore"
	"github.com/dmitrijs2005/smartids/internal/server/models"
	"github.com/dmitrijs2005/smartids/internal/server/repositories/files"
	"github.com/dmitrijs2005/smartids/internal/server/repositories/shares"
)

// --- fakes ---

type fakeFilesRepo struct {
	mu        sync.Mutex
	rows      map[string]*models.File
	createErr error
	getErr    error
	listErr   error
}

func newFakeFilesRepo() *fakeFilesRepo { return &fakeFilesRepo{rows: map[string]*models.File{}} }

func (f *fakeFilesRepo) Create(ctx context.Context, file *models.File) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *file
	f.rows[file.ID] = &cp
	return nil
}

func (f *fakeFilesRepo) GetByID(ctx context.Context, id string) (*models.File, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeFilesRepo) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*models.File, error) {
	r, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.OwnerID != ownerID {
		return nil, common.ErrorNotFound
	}
	return r, nil
}

func (f *fakeFilesRepo) ListByOwner(ctx context.Context, ownerID string) ([]models.FileInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.FileInfo, 0)
	for _, r := range f.rows {
		if r.OwnerID == ownerID {
			out = append(out, r.Info())
		}
	}
	return out, nil
}

type fakeSharesRepo struct {
	mu         sync.Mutex
	rows       map[string]*models.Share
	createErr  error
	consumeErr error
	listOut    []models.ShareInfo
}

func newFakeSharesRepo() *fakeSharesRepo { return &fakeSharesRepo{rows: map[string]*models.Share{}} }

func (f *fakeSharesRepo) Create(ctx context.Context, s *models.Share) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.rows[s.Token] = &cp
	return nil
}

func (f *fakeSharesRepo) Consume(ctx context.Context, token string, now time.Time) (string, error) {
	if f.consumeErr != nil {
		return "", f.consumeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[token]
	if !ok || s.State(now) != models.ShareActive {
		return "", shares.ErrNotConsumable
	}
	s.Downloads++
	return s.FileID, nil
}

func (f *fakeSharesRepo) GetByToken(ctx context.Context, token string) (*models.Share, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSharesRepo) ListByOwner(ctx context.Context, ownerID string) ([]models.ShareInfo, error) {
	return f.listOut, nil
}

type fakeRepoManager struct {
	f *fakeFilesRepo
	s *fakeSharesRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Files(db dbx.DBTX) files.Repository           { return m.f }
func (m *fakeRepoManager) Shares(db dbx.DBTX) shares.Repository         { return m.s }

type fakeStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	putErr  error
	getErr  error
	deleted []string
}

func newFakeStore() *fakeStore { return &fakeStore{blobs: map[string][]byte{}} }

func (s *fakeStore) Put(ctx context.Context, data []byte) (string, error) {
	if s.putErr != nil {
		return "", s.putErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := blobstore.NewStorageKey(time.Now())
	s.blobs[id] = append([]byte(nil), data...)
	return id, nil
}

func (s *fakeStore) Get(ctx context.Context, id string) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[id]
	if !ok {
		return nil, common.ErrBlobNotFound
	}
	return b, nil
}

func (s *fakeStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	delete(s.blobs, id)
	return nil
}

// brokenKeys is a KeyWrapper whose master key is unusable.
type brokenKeys struct{}

func (brokenKeys) Ready() error                  { return common.ErrConfig }
func (brokenKeys) Wrap([]byte) ([]byte, error)   { return nil, common.ErrConfig }
func (brokenKeys) Unwrap([]byte) ([]byte, error) { return nil, common.ErrConfig }

var errBoom = errors.New("boom")
