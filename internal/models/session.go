// Package models defines the persisted record types of the session engine:
// key records, encrypted sessions, devices and sync conflicts.
package models

import "time"

// SessionRecord is the plaintext clinical unit fed into the cipher. It never
// reaches any store in this form.
type SessionRecord struct {
	PatientName string `json:"patient_name"`
	SessionDate string `json:"session_date"` // YYYY-MM-DD
	Text        string `json:"text"`

	// Non-clinical facts mirrored into clear metadata.
	WordCount     int    `json:"word_count"`
	AudioFilename string `json:"audio_filename"`
	QualityMode   string `json:"quality_mode"`
}

// SyncStatus tracks where a local replica stands relative to the remote.
type SyncStatus string

const (
	SyncStatusPending  SyncStatus = "pending"
	SyncStatusSynced   SyncStatus = "synced"
	SyncStatusConflict SyncStatus = "conflict"
)

// EncryptedSession is the stored form of a session record. Ciphertext carries
// the clinical content; every other field is restricted to non-clinical facts.
type EncryptedSession struct {
	// SessionID is unique per user, derived from user, patient, date and a
	// uniqueness nonce so repeated same-day sessions do not collide.
	SessionID string `json:"session_id"`

	UserID string `json:"user_id"`

	// PatientNameHash is a deterministic, non-invertible function of
	// user+patient name, enabling lookup without decryption.
	PatientNameHash string `json:"patient_name_hash"`

	SessionDate string `json:"session_date"`

	Ciphertext []byte `json:"ciphertext"`
	Nonce      []byte `json:"nonce"`

	// ContentHash is a hex digest of the ciphertext, used for change detection
	// between replicas.
	ContentHash string `json:"content_hash"`

	// Clear metadata.
	WordCount     int        `json:"word_count"`
	AudioFilename string     `json:"audio_filename"`
	QualityMode   string     `json:"quality_mode"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	SyncStatus    SyncStatus `json:"sync_status"`
}

// RemoteSession is an EncryptedSession as seen at the remote boundary,
// together with the server-assigned sync version used for cursoring.
type RemoteSession struct {
	EncryptedSession
	Version int64 `json:"version"`
}
