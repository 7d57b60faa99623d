// Package keys implements per-user key management: derivation, password
// verification and guarded rotation of the symmetric key material.
package keys

import (
	"context"

	"github.com/mlevitan/clinisync/internal/models"
)

// Repository persists UserKeyRecord rows. Exactly one live record per user.
type Repository interface {
	// Get returns the record for userID, or common.ErrNotFound.
	Get(ctx context.Context, userID string) (*models.UserKeyRecord, error)

	// Create inserts a new record. Returns common.ErrAlreadyExists if a
	// record for the user is already present: the salt is immutable and a
	// silent replacement would orphan every session encrypted under the
	// old key.
	Create(ctx context.Context, rec *models.UserKeyRecord) error

	// Replace overwrites an existing record during an explicit rotation.
	// Returns common.ErrNotFound if no record exists.
	Replace(ctx context.Context, rec *models.UserKeyRecord) error

	// TouchLastUsed records a successful verification.
	TouchLastUsed(ctx context.Context, userID string) error
}
