package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/ledger"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/remote"
)

// Session bundles everything one authenticated sync run needs: the remote
// store, the local bookkeeping repositories, the capability gate and the
// persisted pull watermark. A session is built per login and shared by the
// push orchestrator, the pull reconciler and the coordinator.
type Session struct {
	Remote   remote.Store
	Ledger   ledger.Repository
	Entities EntityStore
	Meta     metadata.Repository
	Gate     *Gate
	Logger   logging.Logger

	// Now is the clock; overridable in tests.
	Now func() time.Time
}

func NewSession(r remote.Store, l ledger.Repository, e EntityStore, m metadata.Repository, g *Gate, log logging.Logger) *Session {
	return &Session{
		Remote:   r,
		Ledger:   l,
		Entities: e,
		Meta:     m,
		Gate:     g,
		Logger:   log,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// Watermark returns the persisted pull position, or the zero time when none
// has been stored yet.
func (s *Session) Watermark(ctx context.Context) (time.Time, error) {
	raw, err := s.Meta.Get(ctx, metadata.KeySyncWatermark)
	if err != nil {
		return time.Time{}, err
	}
	if len(raw) == 0 {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse sync watermark: %w", err)
	}
	return t, nil
}

// AdvanceWatermark moves the watermark forward to t. Older or equal values
// are ignored so the watermark only ever grows.
func (s *Session) AdvanceWatermark(ctx context.Context, t time.Time) error {
	cur, err := s.Watermark(ctx)
	if err != nil {
		return err
	}
	if !t.After(cur) {
		return nil
	}
	return s.Meta.Set(ctx, metadata.KeySyncWatermark, []byte(t.UTC().Format(time.RFC3339Nano)))
}

// ResetWatermark clears the pull position so the next catch-up rereads the
// full remote state. Called on login.
func (s *Session) ResetWatermark(ctx context.Context) error {
	return s.Meta.Delete(ctx, metadata.KeySyncWatermark)
}
