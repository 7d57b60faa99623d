package sessions

import (
	"context"

	"github.com/mlevitan/clinisync/internal/models"
)

// Repository is the encrypted session store: a passive holder of ciphertext
// plus clear metadata, keyed by (user_id, session_id). It never decrypts and
// never interprets ciphertext.
type Repository interface {
	// Put upserts a session by (user_id, session_id).
	Put(ctx context.Context, s *models.EncryptedSession) error

	// PutIfHash updates an existing session only if its stored content_hash
	// still equals expectedHash (optimistic concurrency). If the row is
	// absent the session is inserted. A mismatch returns common.ErrConflict
	// and leaves the row untouched.
	PutIfHash(ctx context.Context, s *models.EncryptedSession, expectedHash string) error

	// Get returns one session or common.ErrNotFound.
	Get(ctx context.Context, userID, sessionID string) (*models.EncryptedSession, error)

	// List returns the user's sessions ordered by session_date descending,
	// then created_at descending. A non-empty patientNameHash narrows the
	// result to that patient.
	List(ctx context.Context, userID, patientNameHash string) ([]models.EncryptedSession, error)

	// ListPending returns sessions awaiting upload.
	ListPending(ctx context.Context, userID string) ([]*models.EncryptedSession, error)

	// SetSyncStatus transitions one session's sync state.
	SetSyncStatus(ctx context.Context, userID, sessionID string, status models.SyncStatus) error

	// Delete removes a session; common.ErrNotFound if absent.
	Delete(ctx context.Context, userID, sessionID string) error
}
