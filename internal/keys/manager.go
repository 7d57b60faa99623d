package keys

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mlevitan/clinisync/internal/common"
	"github.com/mlevitan/clinisync/internal/cryptox"
	"github.com/mlevitan/clinisync/internal/dbx"
	"github.com/mlevitan/clinisync/internal/logging"
	"github.com/mlevitan/clinisync/internal/models"
)

// verificationPlaintext is the known plaintext encrypted under the derived
// key. Decrypting it back proves the password without storing the key.
func verificationPlaintext(userID string) []byte {
	return []byte("clinisync-key-verification:" + userID)
}

// ReencryptFunc re-encrypts a user's sessions from oldKey to newKey inside
// the rotation transaction. Supplied by the session service so key rotation
// never leaves ciphertext orphaned under a dead key.
type ReencryptFunc func(ctx context.Context, tx dbx.DBTX, oldKey, newKey []byte) error

// Manager derives and verifies per-user symmetric keys. It owns no session
// data.
type Manager struct {
	db     *sql.DB
	cfg    cryptox.Config
	logger logging.Logger
}

func NewManager(db *sql.DB, cfg cryptox.Config, logger logging.Logger) *Manager {
	return &Manager{db: db, cfg: cfg, logger: logger.With("module", "keys")}
}

func (m *Manager) repo(db dbx.DBTX) Repository {
	return NewSQLiteRepository(db)
}

// Generate creates a fresh salt, derives a key from the master password,
// encrypts the verification plaintext under it and persists the record.
// Returns the derived key.
//
// If a record already exists the call fails with ErrAlreadyExists; replacing
// key material is only possible through Rotate.
func (m *Manager) Generate(ctx context.Context, userID string, masterPassword []byte) ([]byte, error) {
	salt := m.cfg.NewSalt()
	key := m.cfg.DeriveKey(masterPassword, salt)

	token, nonce, err := cryptox.SealBytes(verificationPlaintext(userID), key)
	if err != nil {
		return nil, fmt.Errorf("failed to seal verification token: %w", err)
	}

	now := time.Now()
	rec := &models.UserKeyRecord{
		UserID:            userID,
		Salt:              salt,
		VerificationToken: token,
		VerificationNonce: nonce,
		CreatedAt:         now,
		LastUsed:          now,
	}

	if err := m.repo(m.db).Create(ctx, rec); err != nil {
		common.WipeByteArray(key)
		return nil, err
	}

	m.logger.Info(ctx, "key record created", "user_id", userID)
	return key, nil
}

// Verify re-derives the key from the stored salt and checks it against the
// verification token. On success it returns the key and refreshes last_used.
//
// Every failure path returns ErrInvalidCredentials: a missing record, a KDF
// mismatch and an authentication failure are indistinguishable by design.
func (m *Manager) Verify(ctx context.Context, userID string, masterPassword []byte) ([]byte, error) {
	repo := m.repo(m.db)

	rec, err := repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}

	key := m.cfg.DeriveKey(masterPassword, rec.Salt)

	plaintext, err := cryptox.OpenBytes(rec.VerificationToken, rec.VerificationNonce, key)
	if err != nil {
		common.WipeByteArray(key)
		return nil, common.ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare(plaintext, verificationPlaintext(userID)) == 0 {
		common.WipeByteArray(key)
		return nil, common.ErrInvalidCredentials
	}

	if err := repo.TouchLastUsed(ctx, userID); err != nil {
		m.logger.Warn(ctx, "failed to update last_used", "user_id", userID, "error", err)
	}
	return key, nil
}

// Rotate is the explicit, guarded key rotation: it verifies the old password,
// derives a new salt and key, re-encrypts the user's sessions via reencrypt
// and replaces the key record — all inside one transaction, so a crash cannot
// leave sessions split between two keys.
func (m *Manager) Rotate(ctx context.Context, userID string, oldPassword, newPassword []byte, reencrypt ReencryptFunc) error {
	oldKey, err := m.Verify(ctx, userID, oldPassword)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(oldKey)

	salt := m.cfg.NewSalt()
	newKey := m.cfg.DeriveKey(newPassword, salt)
	defer common.WipeByteArray(newKey)

	token, nonce, err := cryptox.SealBytes(verificationPlaintext(userID), newKey)
	if err != nil {
		return fmt.Errorf("failed to seal verification token: %w", err)
	}

	err = dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := reencrypt(ctx, tx, oldKey, newKey); err != nil {
			return fmt.Errorf("re-encryption failed: %w", err)
		}

		now := time.Now()
		rec := &models.UserKeyRecord{
			UserID:            userID,
			Salt:              salt,
			VerificationToken: token,
			VerificationNonce: nonce,
			CreatedAt:         now,
			LastUsed:          now,
		}
		return m.repo(tx).Replace(ctx, rec)
	})
	if err != nil {
		return err
	}

	m.logger.Info(ctx, "key rotated", "user_id", userID)
	return nil
}
