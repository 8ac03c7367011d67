package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/smartids/internal/dbx"
	"github.com/dmitrijs2005/smartids/internal/server/migrations"
	"github.com/dmitrijs2005/smartids/internal/server/repositories/files"
	"github.com/dmitrijs2005/smartids/internal/server/repositories/shares"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLiteRepositoryManager vends repositories for the embedded single-node
// store (modernc.org/sqlite, no cgo).
type SQLiteRepositoryManager struct{}

func (m *SQLiteRepositoryManager) Files(db dbx.DBTX) files.Repository {
	return files.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Shares(db dbx.DBTX) shares.Repository {
	return shares.NewSQLiteRepository(db)
}

// RunMigrations applies the embedded SQLite migrations.
func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.SQLite)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, "sqlite")
}

func NewSQLiteRepositoryManager() *SQLiteRepositoryManager {
	return &SQLiteRepositoryManager{}
}
