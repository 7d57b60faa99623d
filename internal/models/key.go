package models

import "time"

// UserKeyRecord holds the material needed to re-derive and verify a user's
// symmetric key. Exactly one live record exists per user; the salt is
// immutable for the lifetime of the record because regenerating it orphans
// every session encrypted under the old key.
type UserKeyRecord struct {
	UserID string

	Salt []byte

	// VerificationToken is a known plaintext encrypted under the derived key,
	// used to check a password without storing the key itself.
	VerificationToken []byte
	VerificationNonce []byte

	CreatedAt time.Time
	LastUsed  time.Time
}
