package keys

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

func (r *SQLiteRepository) Get(ctx context.Context, userID string) (*models.UserKeyRecord, error) {
	query := `SELECT user_id, salt, verification_token, verification_nonce, created_at, last_used
		FROM user_keys WHERE user_id = ?`

	var rec models.UserKeyRecord
	var createdAt, lastUsed string
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&rec.UserID, &rec.Salt, &rec.VerificationToken, &rec.VerificationNonce, &createdAt, &lastUsed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select key record: %w", err)
	}

	if rec.CreatedAt, err = localdb.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at: %w", err)
	}
	if rec.LastUsed, err = localdb.ParseTime(lastUsed); err != nil {
		return nil, fmt.Errorf("bad last_used: %w", err)
	}
	return &rec, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, rec *models.UserKeyRecord) error {
	query := `INSERT INTO user_keys (user_id, salt, verification_token, verification_nonce, created_at, last_used)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		rec.UserID, rec.Salt, rec.VerificationToken, rec.VerificationNonce,
		localdb.FormatTime(rec.CreatedAt), localdb.FormatTime(rec.LastUsed))
	if err != nil {
		return fmt.Errorf("failed to insert key record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrAlreadyExists
	}
	return nil
}

func (r *SQLiteRepository) Replace(ctx context.Context, rec *models.UserKeyRecord) error {
	query := `UPDATE user_keys
		SET salt = ?, verification_token = ?, verification_nonce = ?, created_at = ?, last_used = ?
		WHERE user_id = ?`

	res, err := r.db.ExecContext(ctx, query,
		rec.Salt, rec.VerificationToken, rec.VerificationNonce,
		localdb.FormatTime(rec.CreatedAt), localdb.FormatTime(rec.LastUsed), rec.UserID)
	if err != nil {
		return fmt.Errorf("failed to replace key record: %w", err)
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

func (r *SQLiteRepository) TouchLastUsed(ctx context.Context, userID string) error {
	query := `UPDATE user_keys SET last_used = ? WHERE user_id = ?`
	if _, err := r.db.ExecContext(ctx, query, localdb.FormatTime(time.Now()), userID); err != nil {
		return fmt.Errorf("failed to update last_used: %w", err)
	}
	return nil
}
