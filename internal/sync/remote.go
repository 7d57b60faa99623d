// Package sync orchestrates push/pull between a device's local store and a
// remote store, detecting divergent replicas and never overwriting them
// silently.
package sync

import (
	"context"

	"github.com/mlevitan/clinisync/internal/models"
)

// RemoteStore is the remote sync boundary. Concrete transport is out of
// scope: implementations range from an in-process memory store (tests, peer
// simulation) to a Postgres-backed service. Calls are fallible and idempotent
// by session id; callers own timeout and retry policy through ctx.
type RemoteStore interface {
	// Upload stores one encrypted session for userID and assigns it a new
	// sync version. Returns common.ErrRemoteUnavailable when the remote
	// cannot be reached.
	Upload(ctx context.Context, userID string, rec *models.EncryptedSession) error

	// ListSince returns the user's records with a sync version greater than
	// cursor, plus the cursor to use next time.
	ListSince(ctx context.Context, userID string, cursor int64) ([]models.RemoteSession, int64, error)
}
