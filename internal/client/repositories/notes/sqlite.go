package notes

import (
	"context"
	"database/sql"
	"errors"
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

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, note *models.Note) (int64, error) {
	query := `INSERT INTO notes (title, body, locked, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		note.Title, note.Body, note.Locked,
		note.CreatedAt.UTC().Format(time.RFC3339Nano),
		note.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to insert note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get note id: %w", err)
	}
	note.LocalID = id
	return id, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, note *models.Note) error {
	query := `UPDATE notes SET title=?, body=?, locked=?, updated_at=? WHERE local_id=?`
	res, err := r.db.ExecContext(ctx, query,
		note.Title, note.Body, note.Locked,
		note.UpdatedAt.UTC().Format(time.RFC3339Nano), note.LocalID)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
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

func (r *SQLiteRepository) Upsert(ctx context.Context, note *models.Note) error {
	query := `INSERT INTO notes (local_id, title, body, locked, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(local_id) DO UPDATE SET title = excluded.title,
			body = excluded.body,
			locked = excluded.locked,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		note.LocalID, note.Title, note.Body, note.Locked,
		note.CreatedAt.UTC().Format(time.RFC3339Nano),
		note.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to upsert note: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, localID int64) (*models.Note, error) {
	query := `SELECT local_id, title, body, locked, created_at, updated_at
		FROM notes WHERE local_id=?`
	row := r.db.QueryRowContext(ctx, query, localID)

	note, err := scanNote(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return note, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Note, error) {
	query := `SELECT local_id, title, body, locked, created_at, updated_at
		FROM notes ORDER BY updated_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select notes: %w", err)
	}
	defer rows.Close()

	var result []models.Note
	for rows.Next() {
		note, err := scanNote(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, localID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE local_id=?`, localID)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
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

func scanNote(scan func(dest ...any) error) (*models.Note, error) {
	note := &models.Note{}
	var created, updated string
	if err := scan(&note.LocalID, &note.Title, &note.Body, &note.Locked, &created, &updated); err != nil {
		return nil, err
	}
	var err error
	if note.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if note.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return note, nil
}
