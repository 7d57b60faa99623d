package store

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mlevitan/clinisync/internal/logging"
	"github.com/mlevitan/clinisync/internal/models"
)

func newStoreWithMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	return NewPostgresStore(db, logger), mock, db
}

func TestUpload_StampsNextVersion(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT\s+INTO\s+sync_users`).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`UPDATE\s+sync_users\s+SET\s+current_version\s*=\s*current_version\s*\+\s*1`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"current_version"}).AddRow(int64(7)))
	mock.ExpectExec(`INSERT\s+INTO\s+sync_sessions`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	now := time.Now()
	rec := &models.EncryptedSession{
		SessionID:       "sess-1",
		UserID:          "user-1",
		PatientNameHash: "abc",
		SessionDate:     "2025-03-01",
		Ciphertext:      []byte{1, 2, 3},
		Nonce:           []byte{4, 5, 6},
		ContentHash:     "def",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := store.Upload(context.Background(), "user-1", rec); err != nil {
		t.Fatalf("Upload error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpload_RollsBackOnVersionError(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT\s+INTO\s+sync_users`).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`UPDATE\s+sync_users`).
		WithArgs("user-1").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := store.Upload(context.Background(), "user-1", &models.EncryptedSession{SessionID: "sess-1"})
	if err == nil {
		t.Fatal("expected error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListSince_ReturnsNextCursor(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	now := time.Now()
	cols := []string{"user_id", "session_id", "patient_name_hash", "session_date", "ciphertext", "nonce",
		"content_hash", "word_count", "audio_filename", "quality_mode", "created_at", "updated_at", "version"}
	rows := sqlmock.NewRows(cols).
		AddRow("user-1", "sess-1", "abc", "2025-03-01", []byte{1}, []byte{2}, "h1", 10, "", "", now, now, int64(5)).
		AddRow("user-1", "sess-2", "abc", "2025-03-02", []byte{3}, []byte{4}, "h2", 20, "", "", now, now, int64(9))

	mock.ExpectQuery(`(?s)SELECT\s+.*FROM\s+sync_sessions\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+version\s*>\s*\$2`).
		WithArgs("user-1", int64(3)).
		WillReturnRows(rows)

	recs, next, err := store.ListSince(context.Background(), "user-1", 3)
	if err != nil {
		t.Fatalf("ListSince error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if next != 9 {
		t.Fatalf("expected cursor 9, got %d", next)
	}
	if recs[0].SessionID != "sess-1" || recs[1].Version != 9 {
		t.Fatalf("unexpected records: %+v", recs)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
