package sync

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/ledger"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/remote"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// fakeSource is a mutable capability source.
type fakeSource struct {
	mu        sync.Mutex
	valid     bool
	sandboxed bool
	entitled  bool
}

func (f *fakeSource) AccountValid() bool { f.mu.Lock(); defer f.mu.Unlock(); return f.valid }
func (f *fakeSource) Sandboxed() bool    { f.mu.Lock(); defer f.mu.Unlock(); return f.sandboxed }
func (f *fakeSource) Entitled() bool     { f.mu.Lock(); defer f.mu.Unlock(); return f.entitled }

func (f *fakeSource) set(valid, sandboxed, entitled bool) {
	f.mu.Lock()
	f.valid, f.sandboxed, f.entitled = valid, sandboxed, entitled
	f.mu.Unlock()
}

// fakeRemote is an in-memory remote.Store applying last-writer-wins on
// writes, with hooks for failure injection.
type fakeRemote struct {
	mu       sync.Mutex
	records  map[string]remote.Record
	writes   [][]remote.Mutation
	queries  []time.Time
	writeErr error
	queryErr error
	onWrite  func()
	feedCh   chan []remote.Record
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{records: map[string]remote.Record{}}
}

func (f *fakeRemote) Get(ctx context.Context, id string) (*remote.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (f *fakeRemote) QueryUpdatedSince(ctx context.Context, since time.Time) ([]remote.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, since)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var out []remote.Record
	for _, rec := range f.records {
		if rec.UpdatedAt.After(since) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRemote) Write(ctx context.Context, muts []remote.Mutation) error {
	f.mu.Lock()
	if f.writeErr != nil {
		f.mu.Unlock()
		return f.writeErr
	}
	f.writes = append(f.writes, muts)
	for _, m := range muts {
		switch m.Op {
		case remote.OpPut:
			cur, ok := f.records[m.Record.ID]
			if !ok || m.Record.UpdatedAt.After(cur.UpdatedAt) {
				f.records[m.Record.ID] = *m.Record
			}
		case remote.OpTombstone:
			cur, ok := f.records[m.ID]
			if !ok || m.DeletedAt.After(cur.UpdatedAt) {
				at := m.DeletedAt
				f.records[m.ID] = remote.Record{ID: m.ID, UpdatedAt: at, Deleted: true, DeletedAt: &at}
			}
		}
	}
	hook := f.onWrite
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (f *fakeRemote) Subscribe(ctx context.Context, since time.Time) (<-chan []remote.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedCh = make(chan []remote.Record, 4)
	return f.feedCh, nil
}

// emit waits for an active subscription and delivers one feed batch.
func (f *fakeRemote) emit(batch []remote.Record) {
	for {
		f.mu.Lock()
		ch := f.feedCh
		f.mu.Unlock()
		if ch != nil {
			ch <- batch
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (f *fakeRemote) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakeRemote) record(id string) (remote.Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	return rec, ok
}

// fakeEntities is an in-memory EntityStore.
type entityItem struct {
	payload   []byte
	updatedAt time.Time
}

type fakeEntities struct {
	mu      sync.Mutex
	nextID  int64
	items   map[int64]entityItem
	loadErr map[int64]error
}

func newFakeEntities() *fakeEntities {
	return &fakeEntities{items: map[int64]entityItem{}, loadErr: map[int64]error{}}
}

func (f *fakeEntities) add(payload string, at time.Time) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.items[f.nextID] = entityItem{payload: []byte(payload), updatedAt: at}
	return f.nextID
}

func (f *fakeEntities) Load(ctx context.Context, localID int64) ([]byte, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.loadErr[localID]; err != nil {
		return nil, time.Time{}, err
	}
	item, ok := f.items[localID]
	if !ok {
		return nil, time.Time{}, common.ErrorNotFound
	}
	return item.payload, item.updatedAt, nil
}

func (f *fakeEntities) Apply(ctx context.Context, localID int64, payload []byte, updatedAt time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if localID == 0 {
		f.nextID++
		localID = f.nextID
	}
	f.items[localID] = entityItem{payload: payload, updatedAt: updatedAt}
	return localID, nil
}

func (f *fakeEntities) Remove(ctx context.Context, localID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, localID)
	return nil
}

func (f *fakeEntities) get(localID int64) (entityItem, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[localID]
	return item, ok
}

func remoteRecord(id, payload string, at time.Time) remote.Record {
	return remote.Record{ID: id, Payload: []byte(payload), UpdatedAt: at}
}

func remoteTombstone(id string, at time.Time) remote.Record {
	return remote.Record{ID: id, UpdatedAt: at, Deleted: true, DeletedAt: &at}
}

type testEnv struct {
	session  *Session
	remote   *fakeRemote
	entities *fakeEntities
	source   *fakeSource
	ledger   ledger.Repository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE sync_ledger (
  local_id INTEGER PRIMARY KEY,
  remote_id TEXT,
  action TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  updated_at_ns INTEGER NOT NULL
);
CREATE TABLE metadata (key TEXT PRIMARY KEY, value TEXT NOT NULL);
`)
	require.NoError(t, err)

	rem := newFakeRemote()
	ents := newFakeEntities()
	src := &fakeSource{valid: true, entitled: true}
	led := ledger.NewSQLiteRepository(db)
	meta := metadata.NewSQLiteRepository(db)
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	return &testEnv{
		session:  NewSession(rem, led, ents, meta, NewGate(src), log),
		remote:   rem,
		entities: ents,
		source:   src,
		ledger:   led,
	}
}
