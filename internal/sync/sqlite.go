package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mlevitan/clinisync/internal/common"
	"github.com/mlevitan/clinisync/internal/dbx"
	"github.com/mlevitan/clinisync/internal/localdb"
	"github.com/mlevitan/clinisync/internal/models"
)

const conflictColumns = `conflict_id, user_id, session_id, local_snapshot, remote_snapshot, detected_at, resolved, resolution_action`

// SQLiteConflictRepository implements ConflictRepository over a dbx.DBTX
// (either *sql.DB or *sql.Tx).
type SQLiteConflictRepository struct {
	db dbx.DBTX
}

func NewSQLiteConflictRepository(db dbx.DBTX) *SQLiteConflictRepository {
	return &SQLiteConflictRepository{db: db}
}

func (r *SQLiteConflictRepository) Create(ctx context.Context, c *models.SyncConflict) error {
	query := `INSERT INTO conflicts (` + conflictColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		c.ConflictID, c.UserID, c.SessionID, c.LocalSnapshot, c.RemoteSnapshot,
		localdb.FormatTime(c.DetectedAt), boolToInt(c.Resolved), c.ResolutionAction)
	if err != nil {
		return fmt.Errorf("failed to insert conflict: %w", err)
	}
	return nil
}

func (r *SQLiteConflictRepository) Get(ctx context.Context, userID, conflictID string) (*models.SyncConflict, error) {
	query := `SELECT ` + conflictColumns + ` FROM conflicts WHERE user_id = ? AND conflict_id = ?`
	c, err := scanConflict(r.db.QueryRowContext(ctx, query, userID, conflictID).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select conflict: %w", err)
	}
	return c, nil
}

func (r *SQLiteConflictRepository) ListOpen(ctx context.Context, userID string) ([]models.SyncConflict, error) {
	query := `SELECT ` + conflictColumns + ` FROM conflicts
		WHERE user_id = ? AND resolved = 0 ORDER BY detected_at ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select conflicts: %w", err)
	}
	defer rows.Close()

	var result []models.SyncConflict
	for rows.Next() {
		c, err := scanConflict(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteConflictRepository) OpenForSession(ctx context.Context, userID, sessionID string) (*models.SyncConflict, error) {
	query := `SELECT ` + conflictColumns + ` FROM conflicts
		WHERE user_id = ? AND session_id = ? AND resolved = 0`
	c, err := scanConflict(r.db.QueryRowContext(ctx, query, userID, sessionID).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select conflict: %w", err)
	}
	return c, nil
}

func (r *SQLiteConflictRepository) UpdateRemoteSnapshot(ctx context.Context, userID, conflictID string, snapshot []byte) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE conflicts SET remote_snapshot = ? WHERE user_id = ? AND conflict_id = ? AND resolved = 0`,
		snapshot, userID, conflictID)
	if err != nil {
		return fmt.Errorf("failed to update conflict: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteConflictRepository) MarkResolved(ctx context.Context, userID, conflictID, action string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE conflicts SET resolved = 1, resolution_action = ? WHERE user_id = ? AND conflict_id = ? AND resolved = 0`,
		action, userID, conflictID)
	if err != nil {
		return fmt.Errorf("failed to update conflict: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func scanConflict(scan func(dest ...any) error) (*models.SyncConflict, error) {
	var c models.SyncConflict
	var detectedAt string
	var resolved int
	err := scan(&c.ConflictID, &c.UserID, &c.SessionID, &c.LocalSnapshot, &c.RemoteSnapshot,
		&detectedAt, &resolved, &c.ResolutionAction)
	if err != nil {
		return nil, err
	}
	if c.DetectedAt, err = localdb.ParseTime(detectedAt); err != nil {
		return nil, fmt.Errorf("bad detected_at: %w", err)
	}
	c.Resolved = resolved != 0
	return &c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
