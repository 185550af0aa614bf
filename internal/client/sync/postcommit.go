package sync

import (
	"context"
	"time"
)

// actionKind tags the bookkeeping steps that may only run after a remote
// batch has committed.
type actionKind int

const (
	// actionMarkSynced flips a ledger entry to synced unless the note
	// changed again after the snapshot was taken.
	actionMarkSynced actionKind = iota
	// actionDeleteLedger drops the ledger entry of a completed delete.
	actionDeleteLedger
)

// postCommitAction is one deferred bookkeeping step. Keeping these as plain
// data instead of closures makes a pending batch inspectable and testable.
type postCommitAction struct {
	kind    actionKind
	localID int64
	// since is the change-time snapshot guarding actionMarkSynced.
	since time.Time
}

func markSynced(localID int64, since time.Time) postCommitAction {
	return postCommitAction{kind: actionMarkSynced, localID: localID, since: since}
}

func deleteLedger(localID int64) postCommitAction {
	return postCommitAction{kind: actionDeleteLedger, localID: localID}
}

// applyPostCommit interprets the action list against the ledger. Individual
// failures are logged and skipped: the remote write already committed, so
// remaining bookkeeping must still be attempted.
func (s *Session) applyPostCommit(ctx context.Context, actions []postCommitAction) {
	for _, a := range actions {
		var err error
		switch a.kind {
		case actionMarkSynced:
			var applied bool
			applied, err = s.Ledger.MarkSyncedIfUnchanged(ctx, a.localID, a.since)
			if err == nil && !applied {
				s.Logger.Debug(ctx, "note changed during push, staying pending", "local_id", a.localID)
			}
		case actionDeleteLedger:
			err = s.Ledger.Delete(ctx, a.localID)
		}
		if err != nil {
			s.Logger.Error(ctx, "post-commit bookkeeping failed", "local_id", a.localID, "error", err)
		}
	}
}
