package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert writes rec unless the stored row is same-or-newer. The strict
// updated_at guard makes replayed pushes no-ops and resolves the two-device
// race in favor of the later writer.
func (r *PostgresRepository) Upsert(ctx context.Context, rec *models.Record) error {
	query := `
		INSERT INTO records (id, user_id, local_id, payload, updated_at, deleted, deleted_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, NULL)
		ON CONFLICT (id) DO UPDATE SET
			local_id = excluded.local_id,
			payload = excluded.payload,
			updated_at = excluded.updated_at,
			deleted = FALSE,
			deleted_at = NULL
		WHERE records.user_id = excluded.user_id
		  AND excluded.updated_at > records.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.UserID, rec.LocalID, rec.Payload, rec.UpdatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Tombstone marks the record deleted, inserting the row if the server never
// saw it (a delete can arrive before the create from another device). Same
// strict guard as Upsert.
func (r *PostgresRepository) Tombstone(ctx context.Context, userID, id string, deletedAt time.Time) error {
	query := `
		INSERT INTO records (id, user_id, local_id, payload, updated_at, deleted, deleted_at)
		VALUES ($1, $2, 0, NULL, $3, TRUE, $3)
		ON CONFLICT (id) DO UPDATE SET
			payload = NULL,
			updated_at = excluded.updated_at,
			deleted = TRUE,
			deleted_at = excluded.deleted_at
		WHERE records.user_id = excluded.user_id
		  AND excluded.updated_at > records.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, id, userID, deletedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, userID, id string) (*models.Record, error) {
	query := `
		SELECT id, user_id, local_id, payload, updated_at, deleted, deleted_at
		FROM records
		WHERE id = $1 AND user_id = $2
	`
	rec := &models.Record{}
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&rec.ID, &rec.UserID, &rec.LocalID, &rec.Payload, &rec.UpdatedAt, &rec.Deleted, &rec.DeletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

// SelectUpdatedSince returns the user's records changed strictly after
// since, tombstones included, oldest first.
func (r *PostgresRepository) SelectUpdatedSince(ctx context.Context, userID string, since time.Time) ([]models.Record, error) {
	query := `
		SELECT id, user_id, local_id, payload, updated_at, deleted, deleted_at
		FROM records
		WHERE user_id = $1 AND updated_at > $2
		ORDER BY updated_at
	`
	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Record
	for rows.Next() {
		var rec models.Record
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.LocalID, &rec.Payload,
			&rec.UpdatedAt, &rec.Deleted, &rec.DeletedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
