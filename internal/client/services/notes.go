// Package services contains application services for the notekeeper client:
// authentication, note management and attachment upload.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/attachments"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/ledger"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/notes"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/cryptox"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/pubsub"
)

// NoteService is the CRUD surface of the client. Every local mutation also
// records the outstanding change in the sync ledger (same transaction) and
// publishes a note event after commit.
type NoteService interface {
	Add(ctx context.Context, title, body string, lock bool, password string) (*models.Note, error)
	Update(ctx context.Context, localID int64, title, body string, lock bool, password string) error
	Get(ctx context.Context, localID int64, password string) (*models.Note, error)
	List(ctx context.Context) ([]models.Note, error)
	Delete(ctx context.Context, localID int64) error
	Events() *pubsub.Bus[models.NoteEvent]
	SetOnChange(fn func())

	// The sync engine drives notes through these; together they satisfy
	// its entity store contract.
	Load(ctx context.Context, localID int64) ([]byte, time.Time, error)
	Apply(ctx context.Context, localID int64, payload []byte, updatedAt time.Time) (int64, error)
	Remove(ctx context.Context, localID int64) error
}

type noteService struct {
	db  *sql.DB
	bus *pubsub.Bus[models.NoteEvent]

	// onChange is invoked after every committed local mutation; the CLI
	// wires it to the sync coordinator's RequestPush.
	onChange func()

	now func() time.Time
}

func NewNoteService(db *sql.DB) NoteService {
	return &noteService{
		db:       db,
		bus:      pubsub.NewBus[models.NoteEvent](16),
		onChange: func() {},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetOnChange registers the hook fired after each committed mutation.
func (s *noteService) SetOnChange(fn func()) {
	if fn != nil {
		s.onChange = fn
	}
}

func (s *noteService) Events() *pubsub.Bus[models.NoteEvent] {
	return s.bus
}

func (s *noteService) Add(ctx context.Context, title, body string, lock bool, password string) (*models.Note, error) {
	if lock {
		var err error
		if body, err = cryptox.EncryptString(body, password); err != nil {
			return nil, fmt.Errorf("failed to lock note: %w", err)
		}
	}

	at := s.now()
	note := &models.Note{Title: title, Body: body, Locked: lock, CreatedAt: at, UpdatedAt: at}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		id, err := notes.NewSQLiteRepository(tx).Create(ctx, note)
		if err != nil {
			return err
		}
		return ledger.NewSQLiteRepository(tx).UpsertPending(ctx, id, ledger.ActionUpsert, at)
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(models.NoteEvent{Type: models.NoteCreated, LocalID: note.LocalID})
	s.onChange()
	return note, nil
}

func (s *noteService) Update(ctx context.Context, localID int64, title, body string, lock bool, password string) error {
	if lock {
		var err error
		if body, err = cryptox.EncryptString(body, password); err != nil {
			return fmt.Errorf("failed to lock note: %w", err)
		}
	}

	at := s.now()
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		noteRepo := notes.NewSQLiteRepository(tx)
		note, err := noteRepo.GetByID(ctx, localID)
		if err != nil {
			return err
		}
		note.Title = title
		note.Body = body
		note.Locked = lock
		note.UpdatedAt = at
		if err := noteRepo.Update(ctx, note); err != nil {
			return err
		}
		return ledger.NewSQLiteRepository(tx).UpsertPending(ctx, localID, ledger.ActionUpsert, at)
	})
	if err != nil {
		return err
	}

	s.bus.Publish(models.NoteEvent{Type: models.NoteUpdated, LocalID: localID})
	s.onChange()
	return nil
}

func (s *noteService) Get(ctx context.Context, localID int64, password string) (*models.Note, error) {
	note, err := notes.NewSQLiteRepository(s.db).GetByID(ctx, localID)
	if err != nil {
		return nil, err
	}
	if note.Locked {
		body, err := cryptox.DecryptString(note.Body, password)
		if err != nil {
			return nil, err
		}
		note.Body = body
	}
	return note, nil
}

func (s *noteService) List(ctx context.Context) ([]models.Note, error) {
	return notes.NewSQLiteRepository(s.db).GetAll(ctx)
}

func (s *noteService) Delete(ctx context.Context, localID int64) error {
	at := s.now()
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := notes.NewSQLiteRepository(tx).Delete(ctx, localID); err != nil {
			return err
		}
		if err := attachments.NewSQLiteRepository(tx).DeleteByNote(ctx, localID); err != nil {
			return err
		}
		return ledger.NewSQLiteRepository(tx).UpsertPending(ctx, localID, ledger.ActionDelete, at)
	})
	if err != nil {
		return err
	}

	s.bus.Publish(models.NoteEvent{Type: models.NoteDeleted, LocalID: localID})
	s.onChange()
	return nil
}

// Load, Apply and Remove make the service usable as the sync engine's
// entity store: the engine sees payload bytes, the service keeps the Note
// semantics and the event stream in one place.

func (s *noteService) Load(ctx context.Context, localID int64) ([]byte, time.Time, error) {
	note, err := notes.NewSQLiteRepository(s.db).GetByID(ctx, localID)
	if err != nil {
		return nil, time.Time{}, err
	}
	payload, err := note.MarshalPayload()
	if err != nil {
		return nil, time.Time{}, err
	}
	return payload, note.UpdatedAt, nil
}

func (s *noteService) Apply(ctx context.Context, localID int64, payload []byte, updatedAt time.Time) (int64, error) {
	note := &models.Note{LocalID: localID, CreatedAt: updatedAt, UpdatedAt: updatedAt}
	if err := note.ApplyPayload(payload); err != nil {
		return 0, fmt.Errorf("%w: malformed note payload", common.ErrInvalidArgument)
	}

	noteRepo := notes.NewSQLiteRepository(s.db)
	event := models.NoteUpdated

	if localID == 0 {
		id, err := noteRepo.Create(ctx, note)
		if err != nil {
			return 0, err
		}
		localID = id
		event = models.NoteCreated
	} else {
		if existing, err := noteRepo.GetByID(ctx, localID); err == nil {
			note.CreatedAt = existing.CreatedAt
		} else if errors.Is(err, common.ErrorNotFound) {
			event = models.NoteCreated
		} else {
			return 0, err
		}
		if err := noteRepo.Upsert(ctx, note); err != nil {
			return 0, err
		}
	}

	s.bus.Publish(models.NoteEvent{Type: event, LocalID: localID, Remote: true})
	return localID, nil
}

func (s *noteService) Remove(ctx context.Context, localID int64) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := notes.NewSQLiteRepository(tx).Delete(ctx, localID); err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return attachments.NewSQLiteRepository(tx).DeleteByNote(ctx, localID)
	})
	if err != nil {
		return err
	}
	s.bus.Publish(models.NoteEvent{Type: models.NoteDeleted, LocalID: localID, Remote: true})
	return nil
}
