package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/client/migrations"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/attachments"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/ledger"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/notes"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Repositories bundles the SQLite-backed stores the client runs on.
type Repositories struct {
	DB          *sql.DB
	Metadata    metadata.Repository
	Notes       notes.Repository
	Ledger      ledger.Repository
	Attachments attachments.Repository
}

// RunMigrations applies the embedded goose migrations to the client database.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (creating if needed) the SQLite database at dsn,
// migrates it and wires the repositories.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLocalDataNotAvailable, err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrLocalDataNotAvailable, err)
	}

	return &Repositories{
		DB:          db,
		Metadata:    metadata.NewSQLiteRepository(db),
		Notes:       notes.NewSQLiteRepository(db),
		Ledger:      ledger.NewSQLiteRepository(db),
		Attachments: attachments.NewSQLiteRepository(db),
	}, nil
}
