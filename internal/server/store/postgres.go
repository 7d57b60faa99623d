// Package store implements the server-side session store on PostgreSQL.
// Every accepted upload is stamped with the user's next sync version, a
// per-user monotonically increasing counter that devices use as their pull
// cursor.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mlevitan/clinisync/internal/dbx"
	"github.com/mlevitan/clinisync/internal/logging"
	"github.com/mlevitan/clinisync/internal/models"
	"github.com/mlevitan/clinisync/internal/server/store/migrations"
	"github.com/pressly/goose/v3"
)

// RunMigrations applies all pending migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open connects to PostgreSQL at dsn and migrates the schema.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return db, nil
}

// PostgresStore implements the RemoteStore boundary on PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger logging.Logger
}

func NewPostgresStore(db *sql.DB, logger logging.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger.With("module", "store")}
}

// Upload stores one encrypted session and stamps it with the user's next
// version. The counter increment and the session upsert commit together, so
// a version is never observed without its session.
func (s *PostgresStore) Upload(ctx context.Context, userID string, rec *models.EncryptedSession) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sync_users (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
		if err != nil {
			return fmt.Errorf("failed to ensure user row: %w", err)
		}

		var version int64
		err = tx.QueryRowContext(ctx,
			`UPDATE sync_users SET current_version = current_version + 1
			 WHERE user_id = $1
			 RETURNING current_version`, userID).Scan(&version)
		if err != nil {
			return fmt.Errorf("failed to increment version: %w", err)
		}

		query := `INSERT INTO sync_sessions
			(user_id, session_id, patient_name_hash, session_date, ciphertext, nonce,
			 content_hash, word_count, audio_filename, quality_mode, created_at, updated_at, version)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (user_id, session_id) DO UPDATE SET
				patient_name_hash = excluded.patient_name_hash,
				session_date = excluded.session_date,
				ciphertext = excluded.ciphertext,
				nonce = excluded.nonce,
				content_hash = excluded.content_hash,
				word_count = excluded.word_count,
				audio_filename = excluded.audio_filename,
				quality_mode = excluded.quality_mode,
				updated_at = excluded.updated_at,
				version = excluded.version`

		_, err = tx.ExecContext(ctx, query,
			userID, rec.SessionID, rec.PatientNameHash, rec.SessionDate, rec.Ciphertext, rec.Nonce,
			rec.ContentHash, rec.WordCount, rec.AudioFilename, rec.QualityMode,
			rec.CreatedAt, rec.UpdatedAt, version)
		if err != nil {
			return fmt.Errorf("failed to upsert session: %w", err)
		}
		return nil
	})
}

// ListSince returns the user's sessions with a version greater than cursor,
// in version order, plus the next cursor.
func (s *PostgresStore) ListSince(ctx context.Context, userID string, cursor int64) ([]models.RemoteSession, int64, error) {
	query := `SELECT user_id, session_id, patient_name_hash, session_date, ciphertext, nonce,
			content_hash, word_count, audio_filename, quality_mode, created_at, updated_at, version
		FROM sync_sessions
		WHERE user_id = $1 AND version > $2
		ORDER BY version ASC`

	rows, err := s.db.QueryContext(ctx, query, userID, cursor)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to select sessions: %w", err)
	}
	defer rows.Close()

	next := cursor
	var result []models.RemoteSession
	for rows.Next() {
		var r models.RemoteSession
		err := rows.Scan(&r.UserID, &r.SessionID, &r.PatientNameHash, &r.SessionDate,
			&r.Ciphertext, &r.Nonce, &r.ContentHash, &r.WordCount, &r.AudioFilename,
			&r.QualityMode, &r.CreatedAt, &r.UpdatedAt, &r.Version)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan session: %w", err)
		}
		if r.Version > next {
			next = r.Version
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, next, nil
}
