// Package sessions contains the session cipher (authenticated encryption of
// clinical records) and the encrypted session store (a passive ciphertext
// holder that never decrypts).
package sessions

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mlevitan/clinisync/internal/cryptox"
	"github.com/mlevitan/clinisync/internal/models"
)

// Cipher turns plaintext session records into EncryptedSession values and
// back. The key is supplied per call by the key manager.
type Cipher struct {
	cfg cryptox.Config
}

func NewCipher(cfg cryptox.Config) *Cipher {
	return &Cipher{cfg: cfg}
}

// HashPatientName returns the deterministic, non-invertible lookup hash for
// a patient name within one user's namespace.
func HashPatientName(userID, patientName string) string {
	sum := sha256.Sum256([]byte(userID + "\x00" + patientName))
	return hex.EncodeToString(sum[:])
}

// ContentHash digests a ciphertext for replica change detection.
func ContentHash(ciphertext []byte) string {
	sum := sha256.Sum256(ciphertext)
	return hex.EncodeToString(sum[:])
}

// newSessionID derives a per-user unique id from user, patient, date and a
// uniqueness nonce, so repeated same-day sessions never collide.
func newSessionID(userID, patientName, sessionDate string) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s\x00%s\x00%s\x00%s", userID, patientName, sessionDate, uuid.NewString()))
	return hex.EncodeToString(sum[:])
}

// Encrypt serializes the record, seals it under key and returns the stored
// form: fresh session id, patient name hash, ciphertext, content hash and
// clear metadata. The authentication tag covers the entire ciphertext, so any
// bit-flip is detected on decrypt.
func (c *Cipher) Encrypt(userID string, rec *models.SessionRecord, key []byte) (*models.EncryptedSession, error) {
	if rec.WordCount == 0 {
		rec.WordCount = len(strings.Fields(rec.Text))
	}

	ciphertext, nonce, err := cryptox.Seal(rec, key)
	if err != nil {
		return nil, fmt.Errorf("failed to seal session: %w", err)
	}

	now := time.Now()
	return &models.EncryptedSession{
		SessionID:       newSessionID(userID, rec.PatientName, rec.SessionDate),
		UserID:          userID,
		PatientNameHash: HashPatientName(userID, rec.PatientName),
		SessionDate:     rec.SessionDate,
		Ciphertext:      ciphertext,
		Nonce:           nonce,
		ContentHash:     ContentHash(ciphertext),
		WordCount:       rec.WordCount,
		AudioFilename:   rec.AudioFilename,
		QualityMode:     rec.QualityMode,
		CreatedAt:       now,
		UpdatedAt:       now,
		SyncStatus:      models.SyncStatusPending,
	}, nil
}

// Reencrypt seals the given record again under key, keeping the session
// identity (id, patient hash, date, created_at) of enc. Used for edits and
// key rotation; the result carries a fresh nonce and content hash and goes
// back to pending.
func (c *Cipher) Reencrypt(enc *models.EncryptedSession, rec *models.SessionRecord, key []byte) (*models.EncryptedSession, error) {
	ciphertext, nonce, err := cryptox.Seal(rec, key)
	if err != nil {
		return nil, fmt.Errorf("failed to seal session: %w", err)
	}

	out := *enc
	out.Ciphertext = ciphertext
	out.Nonce = nonce
	out.ContentHash = ContentHash(ciphertext)
	out.WordCount = rec.WordCount
	out.AudioFilename = rec.AudioFilename
	out.QualityMode = rec.QualityMode
	out.UpdatedAt = time.Now()
	out.SyncStatus = models.SyncStatusPending
	return &out, nil
}

// Decrypt verifies the authentication tag and only then deserializes. Wrong
// key, truncated and tampered ciphertext all fail with ErrDecryptionFailed,
// indistinguishable from a wrong-password failure.
func (c *Cipher) Decrypt(enc *models.EncryptedSession, key []byte) (*models.SessionRecord, error) {
	var rec models.SessionRecord
	if err := cryptox.Open(enc.Ciphertext, enc.Nonce, key, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
