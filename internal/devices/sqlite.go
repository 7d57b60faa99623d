package devices

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mlevitan/clinisync/internal/common"
	"github.com/mlevitan/clinisync/internal/dbx"
	"github.com/mlevitan/clinisync/internal/localdb"
	"github.com/mlevitan/clinisync/internal/models"
)

// SQLiteRepository implements Repository over a dbx.DBTX
// (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, d *models.Device) error {
	query := `INSERT INTO devices (user_id, device_id, display_name, device_type, authorized_at, last_sync, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, device_id) DO UPDATE SET
			display_name = excluded.display_name,
			device_type = excluded.device_type,
			last_sync = excluded.last_sync,
			active = excluded.active`

	_, err := r.db.ExecContext(ctx, query,
		d.UserID, d.DeviceID, d.DisplayName, d.DeviceType,
		localdb.FormatTime(d.AuthorizedAt), localdb.FormatTime(d.LastSync), boolToInt(d.Active))
	if err != nil {
		return fmt.Errorf("failed to upsert device: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, userID, deviceID string) (*models.Device, error) {
	query := `SELECT user_id, device_id, display_name, device_type, authorized_at, last_sync, active
		FROM devices WHERE user_id = ? AND device_id = ?`

	d, err := scanDevice(r.db.QueryRowContext(ctx, query, userID, deviceID).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select device: %w", err)
	}
	return d, nil
}

func (r *SQLiteRepository) ListActive(ctx context.Context, userID string) ([]models.Device, error) {
	query := `SELECT user_id, device_id, display_name, device_type, authorized_at, last_sync, active
		FROM devices WHERE user_id = ? AND active = 1 ORDER BY last_sync DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select devices: %w", err)
	}
	defer rows.Close()

	var result []models.Device
	for rows.Next() {
		d, err := scanDevice(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) SetActive(ctx context.Context, userID, deviceID string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE devices SET active = ? WHERE user_id = ? AND device_id = ?`,
		boolToInt(active), userID, deviceID)
	if err != nil {
		return fmt.Errorf("failed to update device: %w", err)
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

func (r *SQLiteRepository) TouchLastSync(ctx context.Context, userID, deviceID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE devices SET last_sync = ? WHERE user_id = ? AND device_id = ?`,
		localdb.FormatTime(time.Now()), userID, deviceID)
	if err != nil {
		return fmt.Errorf("failed to update last_sync: %w", err)
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

func scanDevice(scan func(dest ...any) error) (*models.Device, error) {
	var d models.Device
	var authorizedAt, lastSync string
	var active int
	err := scan(&d.UserID, &d.DeviceID, &d.DisplayName, &d.DeviceType, &authorizedAt, &lastSync, &active)
	if err != nil {
		return nil, err
	}
	if d.AuthorizedAt, err = localdb.ParseTime(authorizedAt); err != nil {
		return nil, fmt.Errorf("bad authorized_at: %w", err)
	}
	if d.LastSync, err = localdb.ParseTime(lastSync); err != nil {
		return nil, fmt.Errorf("bad last_sync: %w", err)
	}
	d.Active = active != 0
	return &d, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
