package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

func (r *SQLiteRepository) UpsertPending(ctx context.Context, localID int64, action Action, at time.Time) error {
	query := `INSERT INTO sync_ledger (local_id, action, status, updated_at_ns)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(local_id) DO UPDATE SET action = excluded.action,
			status = excluded.status,
			updated_at_ns = excluded.updated_at_ns`
	_, err := r.db.ExecContext(ctx, query, localID, action, StatusPending, at.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to upsert pending ledger entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpsertSynced(ctx context.Context, localID int64, remoteID string, at time.Time) error {
	query := `INSERT INTO sync_ledger (local_id, remote_id, action, status, updated_at_ns)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(local_id) DO UPDATE SET remote_id = excluded.remote_id,
			action = excluded.action,
			status = excluded.status,
			updated_at_ns = excluded.updated_at_ns`
	_, err := r.db.ExecContext(ctx, query, localID, remoteID, ActionUpsert, StatusSynced, at.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to upsert synced ledger entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, pendingOnly bool) ([]Entry, error) {
	query := `SELECT local_id, remote_id, action, status, updated_at_ns FROM sync_ledger`
	if pendingOnly {
		query += ` WHERE status IN (?, ?)`
	}
	query += ` ORDER BY local_id`

	var rows *sql.Rows
	var err error
	if pendingOnly {
		rows, err = r.db.QueryContext(ctx, query, StatusPending, StatusFailed)
	} else {
		rows, err = r.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select ledger entries: %w", err)
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.LocalID, &e.RemoteID, &e.Action, &e.Status, &e.UpdatedAtNs); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) GetByLocalID(ctx context.Context, localID int64) (*Entry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT local_id, remote_id, action, status, updated_at_ns FROM sync_ledger WHERE local_id=?`,
		localID)
	return scanEntry(row)
}

func (r *SQLiteRepository) GetByRemoteID(ctx context.Context, remoteID string) (*Entry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT local_id, remote_id, action, status, updated_at_ns FROM sync_ledger WHERE remote_id=?`,
		remoteID)
	return scanEntry(row)
}

func (r *SQLiteRepository) SetRemoteID(ctx context.Context, localID int64, remoteID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sync_ledger SET remote_id=? WHERE local_id=?`, remoteID, localID)
	if err != nil {
		return fmt.Errorf("failed to set ledger remote id: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) SetStatus(ctx context.Context, localID int64, status Status) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sync_ledger SET status=? WHERE local_id=?`, status, localID)
	if err != nil {
		return fmt.Errorf("failed to set ledger status: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) MarkSyncedIfUnchanged(ctx context.Context, localID int64, since time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sync_ledger SET status=? WHERE local_id=? AND updated_at_ns<=?`,
		StatusSynced, localID, since.UnixNano())
	if err != nil {
		return false, fmt.Errorf("failed to mark ledger entry synced: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return ra == 1, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, localID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sync_ledger WHERE local_id=?`, localID)
	if err != nil {
		return fmt.Errorf("failed to delete ledger entry: %w", err)
	}
	return nil
}

func scanEntry(row *sql.Row) (*Entry, error) {
	e := &Entry{}
	err := row.Scan(&e.LocalID, &e.RemoteID, &e.Action, &e.Status, &e.UpdatedAtNs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
	}
	return e, nil
}

func requireAffected(res sql.Result) error {
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	return nil
}
