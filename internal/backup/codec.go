// Package backup exports and imports a user's encrypted sessions as a single
// portable blob, sealed under the user's key. The blob is safe to park on
// untrusted storage: without the key it is opaque, and any tampering fails
// the authentication check on import.
package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mlevitan/clinisync/internal/common"
	"github.com/mlevitan/clinisync/internal/cryptox"
	"github.com/mlevitan/clinisync/internal/dbx"
	"github.com/mlevitan/clinisync/internal/devices"
	"github.com/mlevitan/clinisync/internal/logging"
	"github.com/mlevitan/clinisync/internal/models"
	"github.com/mlevitan/clinisync/internal/sessions"
)

// envelope is the plaintext layout of a backup before sealing. Sessions stay
// in their encrypted stored form; the envelope seal is a second layer on top.
type envelope struct {
	Owner      string                    `json:"owner"`
	ExportedAt time.Time                 `json:"exported_at"`
	DeviceID   string                    `json:"device_id"`
	Count      int                       `json:"count"`
	Sessions   []models.EncryptedSession `json:"sessions"`
}

// ImportReport summarizes one import: how many entries were written and how
// many were skipped as malformed.
type ImportReport struct {
	Imported int
	Skipped  int
}

// Codec produces and consumes backup blobs.
type Codec struct {
	db       *sql.DB
	identity devices.IdentityProvider
	logger   logging.Logger
}

func NewCodec(db *sql.DB, identity devices.IdentityProvider, logger logging.Logger) *Codec {
	return &Codec{db: db, identity: identity, logger: logger.With("module", "backup")}
}

func (c *Codec) repo(db dbx.DBTX) sessions.Repository {
	return sessions.NewSQLiteRepository(db)
}

// Export seals all of the user's sessions into one blob: 12-byte nonce
// followed by the AES-GCM ciphertext of the JSON envelope.
func (c *Codec) Export(ctx context.Context, userID string, key []byte) ([]byte, error) {
	deviceID, err := c.identity.DeviceID()
	if err != nil {
		return nil, err
	}

	all, err := c.repo(c.db).List(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	env := envelope{
		Owner:      userID,
		ExportedAt: time.Now().UTC(),
		DeviceID:   deviceID,
		Count:      len(all),
		Sessions:   all,
	}
	plaintext, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal backup: %w", err)
	}

	ciphertext, nonce, err := cryptox.SealBytes(plaintext, key)
	if err != nil {
		return nil, fmt.Errorf("failed to seal backup: %w", err)
	}

	c.logger.Info(ctx, "backup exported", "user_id", userID, "sessions", len(all))
	return append(nonce, ciphertext...), nil
}

// Import unseals a blob and upserts its sessions one by one, each in its own
// transaction. The whole blob is rejected when it does not decrypt under key
// or names a different owner; individual malformed entries are skipped and
// counted, never aborting the rest.
func (c *Codec) Import(ctx context.Context, userID string, blob, key []byte) (*ImportReport, error) {
	env, err := unseal(blob, key)
	if err != nil {
		return nil, err
	}
	if env.Owner != userID {
		return nil, common.ErrWrongOwner
	}

	report := &ImportReport{}
	for i := range env.Sessions {
		enc := &env.Sessions[i]
		if !entryValid(userID, enc) {
			report.Skipped++
			c.logger.Warn(ctx, "skipping malformed backup entry", "index", i)
			continue
		}

		// imported sessions go back to pending so the next push propagates them
		enc.SyncStatus = models.SyncStatusPending
		err := dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			return c.repo(tx).Put(ctx, enc)
		})
		if err != nil {
			return report, err
		}
		report.Imported++
	}

	c.logger.Info(ctx, "backup imported",
		"user_id", userID, "imported", report.Imported, "skipped", report.Skipped)
	return report, nil
}

func unseal(blob, key []byte) (*envelope, error) {
	const nonceSize = 12
	if len(blob) <= nonceSize {
		return nil, common.ErrCorrupt
	}

	plaintext, err := cryptox.OpenBytes(blob[nonceSize:], blob[:nonceSize], key)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(plaintext, &env); err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrCorrupt, err.Error())
	}
	return &env, nil
}

// entryValid rejects entries that name another user, miss their identity
// fields or whose ciphertext no longer matches its recorded content hash.
func entryValid(userID string, enc *models.EncryptedSession) bool {
	if enc.UserID != userID || enc.SessionID == "" || len(enc.Ciphertext) == 0 {
		return false
	}
	return sessions.ContentHash(enc.Ciphertext) == enc.ContentHash
}
