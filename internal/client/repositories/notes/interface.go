// Package notes provides the local SQLite store for Note entities.
package notes

import (
	"context"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
)

// Repository describes CRUD and query operations for Note objects backed by
// the local SQLite database. Sync bookkeeping lives in the ledger repository,
// not here.
type Repository interface {
	// Create inserts a new note and returns its assigned local id.
	Create(ctx context.Context, note *models.Note) (int64, error)

	// Update overwrites title/body/locked/updated_at of an existing note.
	Update(ctx context.Context, note *models.Note) error

	// Upsert writes a note under an explicit local id; used by the pull
	// reconciler when applying remote records.
	Upsert(ctx context.Context, note *models.Note) error

	// GetByID returns common.ErrorNotFound when the note does not exist.
	GetByID(ctx context.Context, localID int64) (*models.Note, error)

	// GetAll returns all notes ordered by updated_at descending.
	GetAll(ctx context.Context) ([]models.Note, error)

	// Delete removes the row. Remote tombstoning is the sync engine's job.
	Delete(ctx context.Context, localID int64) error
}
