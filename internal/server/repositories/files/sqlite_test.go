package files

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/smartids/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteRepoWithMock(t *testing.T) (*SQLiteRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewSQLiteRepository(db), mock, db
}

func TestSQLiteCreate_StoresUnixMillis(t *testing.T) {
	repo, mock, db := newSQLiteRepoWithMock(t)
	defer db.Close()

	created := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	expires := created.Add(time.Hour)
	f := sampleFile(created)
	f.ExpiresAt = &expires

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+files\b.*VALUES\s*\(\?,`).
		WithArgs("f1", "u1", "report.pdf", "2026/10/18/abc", "dead", "0102", "beef",
			created.UnixMilli(), sql.NullInt64{Int64: expires.UnixMilli(), Valid: true}).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), f))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteGetByIDAndOwner_DecodesRow(t *testing.T) {
	repo, mock, db := newSQLiteRepoWithMock(t)
	defer db.Close()

	created := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(fileColumns).
		AddRow("f1", "u1", "report.pdf", "2026/10/18/abc", "dead", "0102", "beef", created.UnixMilli(), nil)
	mock.ExpectQuery(`(?s)FROM\s+files\s+WHERE\s+id\s*=\s*\?\s+AND\s+owner_id\s*=\s*\?`).
		WithArgs("f1", "u1").
		WillReturnRows(rows)

	got, err := repo.GetByIDAndOwner(context.Background(), "f1", "u1")
	require.NoError(t, err)
	assert.Equal(t, sampleFile(created), got)
}

func TestSQLiteGetByID_NotFound(t *testing.T) {
	repo, mock, db := newSQLiteRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)FROM\s+files`).WithArgs("x").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "x")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLiteListByOwner(t *testing.T) {
	repo, mock, db := newSQLiteRepoWithMock(t)
	defer db.Close()

	created := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "filename_original", "created_at", "expires_at"}).
		AddRow("f1", "a.txt", created.UnixMilli(), nil)
	mock.ExpectQuery(`(?s)WHERE\s+owner_id\s*=\s*\?\s+ORDER\s+BY\s+created_at\s+DESC`).
		WithArgs("u1").
		WillReturnRows(rows)

	got, err := repo.ListByOwner(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].CreatedAt.Equal(created))
	assert.Nil(t, got[0].ExpiresAt)
}
