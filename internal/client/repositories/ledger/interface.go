// Package ledger tracks which local notes still need to reach the remote
// store. Each note has at most one ledger entry; the entry records the
// outstanding action, its status and the remote identity once assigned.
package ledger

import (
	"context"
	"time"
)

// Action is the outstanding change kind for a ledger entry.
type Action string

const (
	ActionUpsert Action = "upsert"
	ActionDelete Action = "delete"
)

// Status is the sync state of a ledger entry.
type Status string

const (
	StatusPending Status = "pending"
	StatusFailed  Status = "failed"
	StatusSynced  Status = "synced"
)

// Entry is one row of the sync ledger.
type Entry struct {
	LocalID  int64
	RemoteID *string
	Action   Action
	Status   Status
	// UpdatedAtNs is when the tracked note last changed, in UnixNano.
	// The push orchestrator snapshots it before sending and only marks the
	// entry synced if it is still unchanged afterwards.
	UpdatedAtNs int64
}

// UpdatedAt returns the entry change time as time.Time.
func (e *Entry) UpdatedAt() time.Time {
	return time.Unix(0, e.UpdatedAtNs).UTC()
}

// Repository is the sync ledger store. Lookup methods return
// common.ErrorNotFound for missing entries.
type Repository interface {
	// UpsertPending records an outstanding action for a local note,
	// replacing any previous action. An existing remote id is preserved;
	// status resets to pending and the change time is bumped.
	UpsertPending(ctx context.Context, localID int64, action Action, at time.Time) error

	// UpsertSynced records a pull-applied note as already in sync.
	UpsertSynced(ctx context.Context, localID int64, remoteID string, at time.Time) error

	// Get lists entries; with pendingOnly set, only pending and failed ones.
	Get(ctx context.Context, pendingOnly bool) ([]Entry, error)

	GetByLocalID(ctx context.Context, localID int64) (*Entry, error)
	GetByRemoteID(ctx context.Context, remoteID string) (*Entry, error)

	// SetRemoteID assigns the remote identity to an entry.
	SetRemoteID(ctx context.Context, localID int64, remoteID string) error

	SetStatus(ctx context.Context, localID int64, status Status) error

	// MarkSyncedIfUnchanged flips the entry to synced only when its change
	// time is still at or before since. Reports whether the update applied.
	MarkSyncedIfUnchanged(ctx context.Context, localID int64, since time.Time) (bool, error)

	Delete(ctx context.Context, localID int64) error
}
