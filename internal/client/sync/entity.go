package sync

import (
	"context"
	"time"
)

// EntityStore is the engine's view of the local entity repository. It keeps
// the orchestration code independent of the concrete entity type; the note
// service provides the implementation for notes.
type EntityStore interface {
	// Load returns the remote payload form and change time of a local
	// entity, or common.ErrorNotFound.
	Load(ctx context.Context, localID int64) (payload []byte, updatedAt time.Time, err error)

	// Apply writes a remotely-received payload to the local store. A zero
	// localID creates a new entity; the assigned (or echoed) local id is
	// returned.
	Apply(ctx context.Context, localID int64, payload []byte, updatedAt time.Time) (int64, error)

	// Remove deletes the local entity. Missing entities are not an error.
	Remove(ctx context.Context, localID int64) error
}
