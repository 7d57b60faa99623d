// Package common defines shared constants and sentinel errors used across
// the clinisync engine. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Key management errors.
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Cipher errors. Wrong key, truncated and tampered ciphertext all map
	// here so callers cannot tell the cases apart.
	ErrDecryptionFailed = errors.New("decryption failed")

	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Sync errors.
	ErrConflict          = errors.New("sync conflict")
	ErrCorrupt           = errors.New("corrupt record")
	ErrRemoteUnavailable = errors.New("remote unavailable")

	// Auth errors (device token validation at the remote boundary).
	ErrInvalidToken = errors.New("invalid token")

	// Backup errors. An envelope that decrypts fine but belongs to another
	// user is rejected as a whole.
	ErrWrongOwner = errors.New("backup owned by another user")
)
