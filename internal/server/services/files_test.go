package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/smartids/internal/common"
	"github.com/dmitrijs2005/smartids/internal/cryptox"
	"github.com/dmitrijs2005/smartids/internal/logging"
	"github.com/dmitrijs2005/smartids/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMasterKeyHex(t *testing.T) string {
	t.Helper()
	k := make([]byte, cryptox.MasterKeySize)
	_, err := rand.Read(k)
	require.NoError(t, err)
	return hex.EncodeToString(k)
}

type fileFixture struct {
	svc    *FileService
	shares *ShareService
	rm     *fakeRepoManager
	store  *fakeStore
	db     *sql.DB
	mock   sqlmock.Sqlmock
}

func newFileFixture(t *testing.T) *fileFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	rm := &fakeRepoManager{f: newFakeFilesRepo(), s: newFakeSharesRepo()}
	cfg := &config.Config{MaxUploadSize: 1 << 20, DefaultShareTTL: time.Hour, DefaultShareMaxDownloads: 1}
	store := newFakeStore()
	shares := NewShareService(db, rm, cfg, logging.Nop())
	svc := NewFileService(db, rm, store, cryptox.NewKeyWrapper(newMasterKeyHex(t)), shares, cfg, logging.Nop())
	return &fileFixture{svc: svc, shares: shares, rm: rm, store: store, db: db, mock: mock}
}

func TestUpload_StoresCiphertextAndRecord(t *testing.T) {
	fx := newFileFixture(t)
	data := []byte("hello, world")

	f, err := fx.svc.Upload(context.Background(), "u1", "  hello.txt ", data)
	require.NoError(t, err)

	assert.Equal(t, "hello.txt", f.OriginalName)
	assert.Len(t, f.IV, cryptox.IVSize)
	assert.Len(t, f.HMAC, cryptox.TagSize)
	assert.NotEmpty(t, f.WrappedKey)

	stored := fx.store.blobs[f.StorageKey]
	require.NotNil(t, stored)
	assert.NotContains(t, string(stored), "hello")
	assert.Contains(t, fx.rm.f.rows, f.ID)
}

func TestUpload_Validation(t *testing.T) {
	fx := newFileFixture(t)

	_, err := fx.svc.Upload(context.Background(), "u1", "   ", []byte("x"))
	assert.ErrorIs(t, err, common.ErrorValidation)
	_, err = fx.svc.Upload(context.Background(), "", "a", []byte("x"))
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestUpload_TooLarge(t *testing.T) {
	fx := newFileFixture(t)

	_, err := fx.svc.Upload(context.Background(), "u1", "big.bin", make([]byte, 1<<20+1))
	assert.ErrorIs(t, err, common.ErrFileTooLarge)
	assert.Empty(t, fx.store.blobs)
}

func TestUpload_MissingMasterKeyFailsBeforeStorage(t *testing.T) {
	fx := newFileFixture(t)
	fx.svc.keys = cryptox.NewKeyWrapper("")

	_, err := fx.svc.Upload(context.Background(), "u1", "a.txt", []byte("x"))
	assert.ErrorIs(t, err, common.ErrConfig)
	assert.Empty(t, fx.store.blobs)
	assert.Empty(t, fx.rm.f.rows)
}

func TestUpload_StorageFailureCreatesNoRecord(t *testing.T) {
	fx := newFileFixture(t)
	fx.store.putErr = common.ErrStorage

	_, err := fx.svc.Upload(context.Background(), "u1", "a.txt", []byte("x"))
	assert.ErrorIs(t, err, common.ErrStorage)
	assert.Empty(t, fx.rm.f.rows)
}

func TestUpload_RecordInsertFailureDeletesBlob(t *testing.T) {
	fx := newFileFixture(t)
	fx.rm.f.createErr = errBoom

	_, err := fx.svc.Upload(context.Background(), "u1", "a.txt", []byte("x"))
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.Len(t, fx.store.deleted, 1)
	assert.Empty(t, fx.store.blobs)
}

func TestUpload_WrapFailureDeletesBlob(t *testing.T) {
	fx := newFileFixture(t)
	fx.svc.keys = &readyButBrokenKeys{}

	_, err := fx.svc.Upload(context.Background(), "u1", "a.txt", []byte("x"))
	assert.ErrorIs(t, err, common.ErrConfig)
	assert.Len(t, fx.store.deleted, 1)
}

type readyButBrokenKeys struct{ brokenKeys }

func (readyButBrokenKeys) Ready() error { return nil }

func TestFileListOwned(t *testing.T) {
	fx := newFileFixture(t)
	_, err := fx.svc.Upload(context.Background(), "u1", "a.txt", []byte("x"))
	require.NoError(t, err)

	mine, err := fx.svc.ListOwned(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := fx.svc.ListOwned(context.Background(), "u2")
	require.NoError(t, err)
	assert.Empty(t, theirs)

	fx.rm.f.listErr = errBoom
	_, err = fx.svc.ListOwned(context.Background(), "u1")
	assert.ErrorIs(t, err, common.ErrorInternal)
}

func TestDownloadViaShare_CommitsOnSuccess(t *testing.T) {
	fx := newFileFixture(t)
	ctx := context.Background()

	f, err := fx.svc.Upload(ctx, "u1", "a.txt", []byte("payload"))
	require.NoError(t, err)
	share, err := fx.shares.Issue(ctx, f.ID, "u1", ShareOptions{})
	require.NoError(t, err)

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	data, name, err := fx.svc.DownloadViaShare(ctx, share.Token)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
	assert.Equal(t, "a.txt", name)
	require.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestDownloadViaShare_FailuresRollBack(t *testing.T) {
	cases := []struct {
		name    string
		corrupt func(fx *fileFixture, storageKey string)
		want    error
	}{
		{
			name:    "missing blob",
			corrupt: func(fx *fileFixture, k string) { delete(fx.store.blobs, k) },
			want:    common.ErrBlobNotFound,
		},
		{
			name:    "tampered ciphertext",
			corrupt: func(fx *fileFixture, k string) { fx.store.blobs[k][0] ^= 0x01 },
			want:    common.ErrIntegrity,
		},
		{
			name:    "wrong master key",
			corrupt: func(fx *fileFixture, _ string) { fx.svc.keys = cryptox.NewKeyWrapper(newMasterKeyHex(t)) },
			want:    common.ErrIntegrity,
		},
		{
			name:    "master key missing",
			corrupt: func(fx *fileFixture, _ string) { fx.svc.keys = brokenKeys{} },
			want:    common.ErrConfig,
		},
		{
			name:    "storage error",
			corrupt: func(fx *fileFixture, _ string) { fx.store.getErr = errBoom },
			want:    common.ErrorInternal,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newFileFixture(t)
			ctx := context.Background()

			f, err := fx.svc.Upload(ctx, "u1", "a.txt", []byte("payload"))
			require.NoError(t, err)
			share, err := fx.shares.Issue(ctx, f.ID, "u1", ShareOptions{})
			require.NoError(t, err)

			tc.corrupt(fx, f.StorageKey)

			fx.mock.ExpectBegin()
			fx.mock.ExpectRollback()

			data, _, err := fx.svc.DownloadViaShare(ctx, share.Token)
			assert.ErrorIs(t, err, tc.want)
			assert.Nil(t, data)
			require.NoError(t, fx.mock.ExpectationsWereMet())
		})
	}
}

func TestDownloadViaShare_UnknownToken(t *testing.T) {
	fx := newFileFixture(t)
	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()

	_, _, err := fx.svc.DownloadViaShare(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestTranslate(t *testing.T) {
	assert.Equal(t, common.ErrIntegrity, translate(common.ErrFormat))
	assert.Equal(t, common.ErrShareExpired, translate(common.ErrShareExpired))
	assert.Equal(t, common.ErrorInternal, translate(errBoom))
}
