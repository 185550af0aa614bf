package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/ledger"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/remote"
)

// ErrFeedClosed reports that the live change feed dropped while the
// reconciler was still supposed to be running.
var ErrFeedClosed = errors.New("change feed closed")

// Reconciler downloads remote changes and folds them into the local store.
// Catch-up queries and live feed batches funnel through the same apply path
// so conflict rules hold in both modes.
type Reconciler struct {
	s *Session
}

func NewReconciler(s *Session) *Reconciler {
	return &Reconciler{s: s}
}

// CatchUp fetches everything changed remotely since the watermark and
// applies it. A no-op when receiving is not permitted.
func (r *Reconciler) CatchUp(ctx context.Context) error {
	if !r.s.Gate.CanReceive() {
		r.s.Logger.Debug(ctx, "pull skipped, not permitted")
		return nil
	}

	wm, err := r.s.Watermark(ctx)
	if err != nil {
		return err
	}
	recs, err := r.s.Remote.QueryUpdatedSince(ctx, wm)
	if err != nil {
		return fmt.Errorf("failed to query remote changes: %w", err)
	}
	return r.applyBatch(ctx, recs)
}

// RunLive subscribes to the change feed and applies batches as they arrive.
// It returns ctx.Err() on cancellation and ErrFeedClosed when the feed
// drops; the coordinator reconnects with backoff.
func (r *Reconciler) RunLive(ctx context.Context) error {
	wm, err := r.s.Watermark(ctx)
	if err != nil {
		return err
	}
	ch, err := r.s.Remote.Subscribe(ctx, wm)
	if err != nil {
		return err
	}
	r.s.Logger.Info(ctx, "live feed connected")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-ch:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return ErrFeedClosed
			}
			if !r.s.Gate.CanReceive() {
				continue
			}
			if err := r.applyBatch(ctx, batch); err != nil {
				r.s.Logger.Error(ctx, "failed to apply feed batch", "error", err)
			}
		}
	}
}

// applyBatch folds one batch of remote records into the local store and
// advances the watermark to the newest record seen. The batch is deduped by
// remote id first, keeping only the freshest copy of each record.
func (r *Reconciler) applyBatch(ctx context.Context, recs []remote.Record) error {
	if len(recs) == 0 {
		return nil
	}

	recs = dedupe(recs)

	var high time.Time
	for _, rec := range recs {
		if err := r.applyRecord(ctx, rec); err != nil {
			return fmt.Errorf("failed to apply record %s: %w", rec.ID, err)
		}
		if rec.UpdatedAt.After(high) {
			high = rec.UpdatedAt
		}
	}
	return r.s.AdvanceWatermark(ctx, high)
}

func (r *Reconciler) applyRecord(ctx context.Context, rec remote.Record) error {
	entry, err := r.s.Ledger.GetByRemoteID(ctx, rec.ID)
	if errors.Is(err, common.ErrorNotFound) {
		entry = nil
	} else if err != nil {
		return err
	}

	// A local change is still waiting to go out: leave it alone, the push
	// cycle resolves the conflict.
	if entry != nil && entry.Status != ledger.StatusSynced {
		r.s.Logger.Debug(ctx, "skipping remote record with pending local change", "remote_id", rec.ID)
		return nil
	}

	if rec.Deleted {
		if entry == nil {
			return nil
		}
		if err := r.s.Entities.Remove(ctx, entry.LocalID); err != nil {
			return err
		}
		return r.s.Ledger.Delete(ctx, entry.LocalID)
	}

	if entry != nil {
		// Local copy is the same or newer: nothing to do.
		if !rec.UpdatedAt.After(entry.UpdatedAt()) {
			return nil
		}
		if _, err := r.s.Entities.Apply(ctx, entry.LocalID, rec.Payload, rec.UpdatedAt); err != nil {
			return err
		}
		return r.s.Ledger.UpsertSynced(ctx, entry.LocalID, rec.ID, rec.UpdatedAt)
	}

	// First sighting of this record on this device.
	localID, err := r.s.Entities.Apply(ctx, 0, rec.Payload, rec.UpdatedAt)
	if err != nil {
		return err
	}
	return r.s.Ledger.UpsertSynced(ctx, localID, rec.ID, rec.UpdatedAt)
}

// dedupe collapses duplicate remote ids within a batch, keeping the newest
// copy, and returns the records in updated_at order.
func dedupe(recs []remote.Record) []remote.Record {
	newest := make(map[string]remote.Record, len(recs))
	for _, rec := range recs {
		if cur, ok := newest[rec.ID]; ok && !rec.UpdatedAt.After(cur.UpdatedAt) {
			continue
		}
		newest[rec.ID] = rec
	}

	out := make([]remote.Record, 0, len(newest))
	for _, rec := range newest {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out
}
