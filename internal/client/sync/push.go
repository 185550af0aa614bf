package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/ledger"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/remote"
	"github.com/google/uuid"
)

// Pusher uploads outstanding local changes. Mutations are collected into
// batches of at most remote.MaxBatchWrites and committed atomically; the
// ledger bookkeeping for a batch runs only after its commit succeeds.
type Pusher struct {
	s *Session

	// newID allocates remote identifiers; overridable in tests.
	newID func() string
}

func NewPusher(s *Session) *Pusher {
	return &Pusher{s: s, newID: uuid.NewString}
}

// Push runs one full push cycle over all pending ledger entries. A remote
// transport failure aborts the cycle and is returned; per-entry local
// failures mark the entry failed and the cycle continues. When the gate
// forbids pushing the cycle is a no-op.
func (p *Pusher) Push(ctx context.Context) error {
	if !p.s.Gate.CanPush() {
		p.s.Logger.Debug(ctx, "push skipped, not permitted")
		return nil
	}

	entries, err := p.s.Ledger.Get(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to list pending entries: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	var batch []remote.Mutation
	var actions []postCommitAction

	for _, e := range entries {
		if err := p.process(ctx, e, &batch, &actions); err != nil {
			return err
		}
		if len(batch) >= remote.MaxBatchWrites {
			if err := p.flush(ctx, batch, actions); err != nil {
				return err
			}
			batch, actions = nil, nil
		}
	}

	return p.flush(ctx, batch, actions)
}

// process handles one ledger entry, appending its mutation and deferred
// bookkeeping. Only remote errors are returned; they abort the cycle.
func (p *Pusher) process(ctx context.Context, e ledger.Entry, batch *[]remote.Mutation, actions *[]postCommitAction) error {
	snapshot := e.UpdatedAt()

	if e.Action == ledger.ActionDelete {
		// Never reached the server: nothing to tombstone.
		if e.RemoteID == nil {
			return p.s.Ledger.Delete(ctx, e.LocalID)
		}
		*batch = append(*batch, remote.Tombstone(*e.RemoteID, snapshot))
		*actions = append(*actions, deleteLedger(e.LocalID))
		return nil
	}

	// Incoming wins: a remote copy newer than our snapshot supersedes the
	// outgoing change, so adopt it instead of overwriting it.
	if e.RemoteID != nil {
		rec, err := p.s.Remote.Get(ctx, *e.RemoteID)
		if err != nil {
			return fmt.Errorf("failed to read remote record: %w", err)
		}
		if rec != nil && rec.UpdatedAt.After(snapshot) {
			return p.adoptRemote(ctx, e.LocalID, rec)
		}
	}

	payload, updatedAt, err := p.s.Entities.Load(ctx, e.LocalID)
	if errors.Is(err, common.ErrorNotFound) {
		// Stale entry for an entity that no longer exists locally.
		p.s.Logger.Warn(ctx, "dropping ledger entry without entity", "local_id", e.LocalID)
		return p.s.Ledger.Delete(ctx, e.LocalID)
	}
	if err != nil {
		p.s.Logger.Error(ctx, "failed to load entity for push", "local_id", e.LocalID, "error", err)
		return p.s.Ledger.SetStatus(ctx, e.LocalID, ledger.StatusFailed)
	}

	remoteID := ""
	if e.RemoteID != nil {
		remoteID = *e.RemoteID
	} else {
		// First push of this entity: record the identity before the batch
		// commits so a crash cannot orphan the remote copy.
		remoteID = p.newID()
		if err := p.s.Ledger.SetRemoteID(ctx, e.LocalID, remoteID); err != nil {
			return fmt.Errorf("failed to record remote id: %w", err)
		}
	}

	*batch = append(*batch, remote.Put(remote.Record{
		ID:        remoteID,
		LocalID:   e.LocalID,
		Payload:   payload,
		UpdatedAt: updatedAt,
	}))
	*actions = append(*actions, markSynced(e.LocalID, snapshot))
	return nil
}

// adoptRemote applies a newer remote copy locally during a push cycle.
func (p *Pusher) adoptRemote(ctx context.Context, localID int64, rec *remote.Record) error {
	if rec.Deleted {
		if err := p.s.Entities.Remove(ctx, localID); err != nil {
			return err
		}
		return p.s.Ledger.Delete(ctx, localID)
	}
	if _, err := p.s.Entities.Apply(ctx, localID, rec.Payload, rec.UpdatedAt); err != nil {
		return err
	}
	return p.s.Ledger.UpsertSynced(ctx, localID, rec.ID, rec.UpdatedAt)
}

func (p *Pusher) flush(ctx context.Context, batch []remote.Mutation, actions []postCommitAction) error {
	if len(batch) == 0 {
		return nil
	}
	if err := p.s.Remote.Write(ctx, batch); err != nil {
		return fmt.Errorf("failed to commit push batch: %w", err)
	}
	p.s.Logger.Info(ctx, "push batch committed", "mutations", len(batch))
	p.s.applyPostCommit(ctx, actions)
	return nil
}
