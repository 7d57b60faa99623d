package sessions

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

// SQLiteRepository implements Repository over a dbx.DBTX
// (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const sessionColumns = `user_id, session_id, patient_name_hash, session_date,
	ciphertext, nonce, content_hash, word_count, audio_filename, quality_mode,
	created_at, updated_at, sync_status`

func (r *SQLiteRepository) Put(ctx context.Context, s *models.EncryptedSession) error {
	query := `INSERT INTO sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, session_id) DO UPDATE SET
			patient_name_hash = excluded.patient_name_hash,
			session_date = excluded.session_date,
			ciphertext = excluded.ciphertext,
			nonce = excluded.nonce,
			content_hash = excluded.content_hash,
			word_count = excluded.word_count,
			audio_filename = excluded.audio_filename,
			quality_mode = excluded.quality_mode,
			updated_at = excluded.updated_at,
			sync_status = excluded.sync_status`

	_, err := r.db.ExecContext(ctx, query,
		s.UserID, s.SessionID, s.PatientNameHash, s.SessionDate,
		s.Ciphertext, s.Nonce, s.ContentHash, s.WordCount, s.AudioFilename, s.QualityMode,
		localdb.FormatTime(s.CreatedAt), localdb.FormatTime(s.UpdatedAt), string(s.SyncStatus))
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) PutIfHash(ctx context.Context, s *models.EncryptedSession, expectedHash string) error {
	query := `UPDATE sessions SET
			patient_name_hash = ?, session_date = ?, ciphertext = ?, nonce = ?,
			content_hash = ?, word_count = ?, audio_filename = ?, quality_mode = ?,
			updated_at = ?, sync_status = ?
		WHERE user_id = ? AND session_id = ? AND content_hash = ?`

	res, err := r.db.ExecContext(ctx, query,
		s.PatientNameHash, s.SessionDate, s.Ciphertext, s.Nonce,
		s.ContentHash, s.WordCount, s.AudioFilename, s.QualityMode,
		localdb.FormatTime(s.UpdatedAt), string(s.SyncStatus),
		s.UserID, s.SessionID, expectedHash)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	// Either the row is missing (insert it) or the hash moved underneath us.
	if _, err := r.Get(ctx, s.UserID, s.SessionID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return r.Put(ctx, s)
		}
		return err
	}
	return common.ErrConflict
}

func (r *SQLiteRepository) Get(ctx context.Context, userID, sessionID string) (*models.EncryptedSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = ? AND session_id = ?`
	row := r.db.QueryRowContext(ctx, query, userID, sessionID)

	s, err := scanSession(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select session: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) List(ctx context.Context, userID, patientNameHash string) ([]models.EncryptedSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = ?`
	args := []any{userID}
	if patientNameHash != "" {
		query += ` AND patient_name_hash = ?`
		args = append(args, patientNameHash)
	}
	query += ` ORDER BY session_date DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select sessions: %w", err)
	}
	defer rows.Close()

	var result []models.EncryptedSession
	for rows.Next() {
		s, err := scanSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) ListPending(ctx context.Context, userID string) ([]*models.EncryptedSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions
		WHERE user_id = ? AND sync_status = ? ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, userID, string(models.SyncStatusPending))
	if err != nil {
		return nil, fmt.Errorf("failed to select pending sessions: %w", err)
	}
	defer rows.Close()

	var pending []*models.EncryptedSession
	for rows.Next() {
		s, err := scanSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		pending = append(pending, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pending, nil
}

func (r *SQLiteRepository) SetSyncStatus(ctx context.Context, userID, sessionID string, status models.SyncStatus) error {
	query := `UPDATE sessions SET sync_status = ? WHERE user_id = ? AND session_id = ?`
	res, err := r.db.ExecContext(ctx, query, string(status), userID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
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

func (r *SQLiteRepository) Delete(ctx context.Context, userID, sessionID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ? AND session_id = ?`, userID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
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

func scanSession(scan func(dest ...any) error) (*models.EncryptedSession, error) {
	var s models.EncryptedSession
	var createdAt, updatedAt, status string
	err := scan(
		&s.UserID, &s.SessionID, &s.PatientNameHash, &s.SessionDate,
		&s.Ciphertext, &s.Nonce, &s.ContentHash, &s.WordCount, &s.AudioFilename, &s.QualityMode,
		&createdAt, &updatedAt, &status)
	if err != nil {
		return nil, err
	}
	if s.CreatedAt, err = localdb.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at: %w", err)
	}
	if s.UpdatedAt, err = localdb.ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("bad updated_at: %w", err)
	}
	s.SyncStatus = models.SyncStatus(status)
	return &s, nil
}
