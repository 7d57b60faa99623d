package sync

import (
	"context"

	"github.com/mlevitan/clinisync/internal/models"
)

// ConflictRepository stores divergence records. A session has at most one
// open conflict at a time; new divergences for the same session are folded
// into the existing record until it is resolved.
type ConflictRepository interface {
	// Create stores a new conflict.
	Create(ctx context.Context, c *models.SyncConflict) error

	// Get returns one conflict or common.ErrNotFound.
	Get(ctx context.Context, userID, conflictID string) (*models.SyncConflict, error)

	// ListOpen returns the user's unresolved conflicts, oldest first.
	ListOpen(ctx context.Context, userID string) ([]models.SyncConflict, error)

	// OpenForSession returns the open conflict for one session, or
	// common.ErrNotFound when there is none.
	OpenForSession(ctx context.Context, userID, sessionID string) (*models.SyncConflict, error)

	// UpdateRemoteSnapshot refreshes the remote side of an open conflict.
	UpdateRemoteSnapshot(ctx context.Context, userID, conflictID string, snapshot []byte) error

	// MarkResolved retires a conflict, recording the action taken. Resolving
	// an already resolved or unknown conflict returns common.ErrNotFound.
	MarkResolved(ctx context.Context, userID, conflictID, action string) error
}
