package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/remote"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/repomanager"
)

// RecordService applies client batch writes and serves record reads. Batch
// writes run in one transaction; pushing requires an entitled plan, which is
// re-checked from the users table on every batch so plan changes take
// effect immediately.
type RecordService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewRecordService(db *sql.DB, m repomanager.RepositoryManager) *RecordService {
	return &RecordService{db: db, repomanager: m}
}

func (s *RecordService) Get(ctx context.Context, userID, id string) (*models.Record, error) {
	return s.repomanager.Records(s.db).GetByID(ctx, userID, id)
}

func (s *RecordService) QueryUpdatedSince(ctx context.Context, userID string, since time.Time) ([]models.Record, error) {
	return s.repomanager.Records(s.db).SelectUpdatedSince(ctx, userID, since)
}

// BatchWrite applies the mutations atomically and returns the committed
// server-side state of every touched record, for broadcasting to feed
// subscribers. The read-back matters: a mutation losing the last-writer-wins
// comparison leaves the stored row untouched, and that stored row is what
// other devices should see.
func (s *RecordService) BatchWrite(ctx context.Context, userID string, mutations []remote.Mutation) ([]models.Record, error) {
	if len(mutations) > remote.MaxBatchWrites {
		return nil, fmt.Errorf("%w: batch of %d exceeds limit %d", common.ErrInvalidArgument, len(mutations), remote.MaxBatchWrites)
	}
	if len(mutations) == 0 {
		return nil, nil
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}
	if user.Plan != common.PlanPremium {
		return nil, common.ErrPushForbidden
	}

	var committed []models.Record
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Records(tx)

		for _, m := range mutations {
			switch m.Op {
			case remote.OpPut:
				if m.Record == nil || m.Record.ID == "" {
					return fmt.Errorf("%w: put mutation without record", common.ErrInvalidArgument)
				}
				rec := &models.Record{
					ID:        m.Record.ID,
					UserID:    userID,
					LocalID:   m.Record.LocalID,
					Payload:   m.Record.Payload,
					UpdatedAt: m.Record.UpdatedAt.UTC(),
				}
				if err := repo.Upsert(ctx, rec); err != nil {
					return err
				}
			case remote.OpTombstone:
				if m.ID == "" {
					return fmt.Errorf("%w: tombstone mutation without id", common.ErrInvalidArgument)
				}
				at := m.DeletedAt
				if at.IsZero() {
					at = time.Now()
				}
				if err := repo.Tombstone(ctx, userID, m.ID, at.UTC()); err != nil {
					return err
				}
			default:
				return fmt.Errorf("%w: unknown mutation op %q", common.ErrInvalidArgument, m.Op)
			}
		}

		for _, m := range mutations {
			id := m.ID
			if m.Record != nil {
				id = m.Record.ID
			}
			rec, err := repo.GetByID(ctx, userID, id)
			if err != nil {
				if errors.Is(err, common.ErrorNotFound) {
					continue
				}
				return err
			}
			committed = append(committed, *rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return committed, nil
}
