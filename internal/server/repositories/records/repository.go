package records

import (
	"context"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/server/models"
)

// Repository stores note records per owner. Upsert and Tombstone apply
// last-writer-wins with a strict updated_at comparison, so replaying an
// already applied mutation changes nothing.
type Repository interface {
	Upsert(ctx context.Context, rec *models.Record) error
	Tombstone(ctx context.Context, userID, id string, deletedAt time.Time) error
	GetByID(ctx context.Context, userID, id string) (*models.Record, error)
	SelectUpdatedSince(ctx context.Context, userID string, since time.Time) ([]models.Record, error)
}
