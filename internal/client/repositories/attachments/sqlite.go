package attachments

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, a *models.Attachment) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO attachments (note_local_id, file_name, storage_key, status, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		a.NoteLocalID, a.FileName, a.StorageKey, a.Status,
		a.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to insert attachment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get attachment id: %w", err)
	}
	a.ID = id
	return id, nil
}

func (r *SQLiteRepository) GetByNote(ctx context.Context, noteLocalID int64) ([]models.Attachment, error) {
	return r.query(ctx,
		`SELECT id, note_local_id, file_name, storage_key, status, created_at
		FROM attachments WHERE note_local_id=? ORDER BY id`, noteLocalID)
}

func (r *SQLiteRepository) GetPendingUploads(ctx context.Context) ([]models.Attachment, error) {
	return r.query(ctx,
		`SELECT id, note_local_id, file_name, storage_key, status, created_at
		FROM attachments WHERE status=? ORDER BY id`, models.AttachmentPending)
}

func (r *SQLiteRepository) MarkUploaded(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE attachments SET status=? WHERE id=?`, models.AttachmentUploaded, id)
	if err != nil {
		return fmt.Errorf("failed to mark attachment uploaded: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) UpdateStorageKey(ctx context.Context, id int64, key string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE attachments SET storage_key=? WHERE id=?`, key, id)
	if err != nil {
		return fmt.Errorf("failed to update storage key: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteByNote(ctx context.Context, noteLocalID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM attachments WHERE note_local_id=?`, noteLocalID)
	if err != nil {
		return fmt.Errorf("failed to delete attachments: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) query(ctx context.Context, q string, args ...any) ([]models.Attachment, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select attachments: %w", err)
	}
	defer rows.Close()

	var result []models.Attachment
	for rows.Next() {
		var a models.Attachment
		var created string
		if err := rows.Scan(&a.ID, &a.NoteLocalID, &a.FileName, &a.StorageKey, &a.Status, &created); err != nil {
			return nil, err
		}
		if a.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
