package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/remote"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB NOT NULL);
CREATE TABLE notes (
  local_id INTEGER PRIMARY KEY AUTOINCREMENT,
  title TEXT NOT NULL DEFAULT '',
  body TEXT NOT NULL DEFAULT '',
  locked INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE TABLE sync_ledger (
  local_id INTEGER PRIMARY KEY,
  remote_id TEXT,
  action TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  updated_at_ns INTEGER NOT NULL
);
CREATE TABLE attachments (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  note_local_id INTEGER NOT NULL,
  file_name TEXT NOT NULL,
  storage_key TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  created_at TEXT NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeClient implements client.Client for service unit tests.
type fakeClient struct {
	RegisterErr error

	GetSaltRet []byte
	GetSaltErr error

	LoginErr      error
	LoginVerifier []byte

	PingErr error

	PutURLRet string
	PutKeyRet string
	PutURLErr error

	GetURLRet string
	GetURLErr error
}

func (f *fakeClient) Close() error { return nil }

func (f *fakeClient) Register(ctx context.Context, username string, salt, verifier []byte) error {
	return f.RegisterErr
}

func (f *fakeClient) GetSalt(ctx context.Context, username string) ([]byte, error) {
	return f.GetSaltRet, f.GetSaltErr
}

func (f *fakeClient) Login(ctx context.Context, username string, verifier []byte) error {
	f.LoginVerifier = verifier
	return f.LoginErr
}

func (f *fakeClient) Ping(ctx context.Context) error { return f.PingErr }

func (f *fakeClient) GetPresignedPutURL(ctx context.Context) (string, string, error) {
	return f.PutURLRet, f.PutKeyRet, f.PutURLErr
}

func (f *fakeClient) GetPresignedGetURL(ctx context.Context, key string) (string, error) {
	return f.GetURLRet, f.GetURLErr
}

func (f *fakeClient) Get(ctx context.Context, id string) (*remote.Record, error) { return nil, nil }

func (f *fakeClient) QueryUpdatedSince(ctx context.Context, since time.Time) ([]remote.Record, error) {
	return nil, nil
}

func (f *fakeClient) Write(ctx context.Context, muts []remote.Mutation) error { return nil }

func (f *fakeClient) Subscribe(ctx context.Context, since time.Time) (<-chan []remote.Record, error) {
	return nil, nil
}
