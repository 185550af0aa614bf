package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/ledger"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteAdd_EnqueuesLedgerAndPublishes(t *testing.T) {
	db := setupDB(t)
	svc := NewNoteService(db)
	ctx := context.Background()

	events, cancel := svc.Events().Subscribe()
	defer cancel()

	pushed := 0
	svc.SetOnChange(func() { pushed++ })

	note, err := svc.Add(ctx, "groceries", "milk", false, "")
	require.NoError(t, err)
	require.NotZero(t, note.LocalID)

	e, err := ledger.NewSQLiteRepository(db).GetByLocalID(ctx, note.LocalID)
	require.NoError(t, err)
	assert.Equal(t, ledger.ActionUpsert, e.Action)
	assert.Equal(t, ledger.StatusPending, e.Status)
	assert.Equal(t, note.UpdatedAt.UnixNano(), e.UpdatedAtNs)

	ev := <-events
	assert.Equal(t, models.NoteCreated, ev.Type)
	assert.Equal(t, note.LocalID, ev.LocalID)
	assert.False(t, ev.Remote)
	assert.Equal(t, 1, pushed)
}

func TestNoteEvents_RemoteFlag(t *testing.T) {
	db := setupDB(t)
	svc := NewNoteService(db)
	ctx := context.Background()

	events, cancel := svc.Events().Subscribe()
	defer cancel()

	localID, err := svc.Apply(ctx, 0, []byte(`{"title":"remote","body":"b"}`), time.Now().UTC())
	require.NoError(t, err)

	ev := <-events
	assert.Equal(t, models.NoteCreated, ev.Type)
	assert.True(t, ev.Remote)

	require.NoError(t, svc.Remove(ctx, localID))
	ev = <-events
	assert.Equal(t, models.NoteDeleted, ev.Type)
	assert.True(t, ev.Remote)
}

func TestNoteAdd_LockedBodyIsEncrypted(t *testing.T) {
	db := setupDB(t)
	svc := NewNoteService(db)
	ctx := context.Background()

	note, err := svc.Add(ctx, "secret", "the body", true, "pa55")
	require.NoError(t, err)

	// the stored body is ciphertext
	var raw string
	require.NoError(t, db.QueryRow(`SELECT body FROM notes WHERE local_id=?`, note.LocalID).Scan(&raw))
	assert.NotEqual(t, "the body", raw)

	got, err := svc.Get(ctx, note.LocalID, "pa55")
	require.NoError(t, err)
	assert.Equal(t, "the body", got.Body)

	_, err = svc.Get(ctx, note.LocalID, "wrong")
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)
}

func TestNoteUpdate_RePendsLedger(t *testing.T) {
	db := setupDB(t)
	svc := NewNoteService(db)
	ctx := context.Background()

	note, err := svc.Add(ctx, "draft", "v1", false, "")
	require.NoError(t, err)

	ledgerRepo := ledger.NewSQLiteRepository(db)
	require.NoError(t, ledgerRepo.SetStatus(ctx, note.LocalID, ledger.StatusSynced))

	require.NoError(t, svc.Update(ctx, note.LocalID, "draft", "v2", false, ""))

	e, err := ledgerRepo.GetByLocalID(ctx, note.LocalID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPending, e.Status)

	got, err := svc.Get(ctx, note.LocalID, "")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Body)
}

func TestNoteDelete_EnqueuesDeleteAction(t *testing.T) {
	db := setupDB(t)
	svc := NewNoteService(db)
	ctx := context.Background()

	note, err := svc.Add(ctx, "gone", "", false, "")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, note.LocalID))

	_, err = svc.Get(ctx, note.LocalID, "")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	e, err := ledger.NewSQLiteRepository(db).GetByLocalID(ctx, note.LocalID)
	require.NoError(t, err)
	assert.Equal(t, ledger.ActionDelete, e.Action)
}

func TestNoteEntityStore_RoundTrip(t *testing.T) {
	db := setupDB(t)
	svc := NewNoteService(db)
	ctx := context.Background()
	at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	// apply a remote payload as a brand new note
	localID, err := svc.Apply(ctx, 0, []byte(`{"title":"remote","body":"b"}`), at)
	require.NoError(t, err)
	require.NotZero(t, localID)

	payload, updatedAt, err := svc.Load(ctx, localID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"remote","body":"b"}`, string(payload))
	assert.True(t, updatedAt.Equal(at))

	// overwrite with a newer remote copy
	_, err = svc.Apply(ctx, localID, []byte(`{"title":"remote","body":"b2"}`), at.Add(time.Minute))
	require.NoError(t, err)

	note, err := svc.Get(ctx, localID, "")
	require.NoError(t, err)
	assert.Equal(t, "b2", note.Body)
	assert.True(t, note.CreatedAt.Equal(at)) // creation time survives overwrites

	require.NoError(t, svc.Remove(ctx, localID))
	_, err = svc.Get(ctx, localID, "")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	// removing again is fine, pull tombstones can arrive twice
	require.NoError(t, svc.Remove(ctx, localID))
}

func TestNoteEntityStore_MalformedPayload(t *testing.T) {
	db := setupDB(t)
	svc := NewNoteService(db)

	_, err := svc.Apply(context.Background(), 0, []byte(`{oops`), time.Now().UTC())
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}
