package sessions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mlevitan/clinisync/internal/dbx"
	"github.com/mlevitan/clinisync/internal/keys"
	"github.com/mlevitan/clinisync/internal/logging"
	"github.com/mlevitan/clinisync/internal/models"
)

// Service combines the cipher and the store for device-local session
// operations. Writes are transactionally scoped: a crash mid-write cannot
// leave a session half-updated.
type Service struct {
	db     *sql.DB
	cipher *Cipher
	logger logging.Logger
}

func NewService(db *sql.DB, cipher *Cipher, logger logging.Logger) *Service {
	return &Service{db: db, cipher: cipher, logger: logger.With("module", "sessions")}
}

func (s *Service) repo(db dbx.DBTX) Repository {
	return NewSQLiteRepository(db)
}

// Record encrypts a new session record and stores it as pending.
func (s *Service) Record(ctx context.Context, userID string, rec *models.SessionRecord, key []byte) (*models.EncryptedSession, error) {
	enc, err := s.cipher.Encrypt(userID, rec, key)
	if err != nil {
		return nil, err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repo(tx).Put(ctx, enc)
	})
	if err != nil {
		return nil, fmt.Errorf("saving error: %w", err)
	}

	s.logger.Info(ctx, "session recorded",
		"user_id", userID, "session_id", enc.SessionID, "date", enc.SessionDate)
	return enc, nil
}

// Update re-encrypts an existing session with edited content. The write is a
// compare-and-swap against the hash the caller loaded: if another writer got
// in between, the caller is redirected into the conflict path with
// ErrConflict instead of silently clobbering.
func (s *Service) Update(ctx context.Context, userID, sessionID string, rec *models.SessionRecord, key []byte) (*models.EncryptedSession, error) {
	var updated *models.EncryptedSession
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)
		current, err := repo.Get(ctx, userID, sessionID)
		if err != nil {
			return err
		}
		enc, err := s.cipher.Reencrypt(current, rec, key)
		if err != nil {
			return err
		}
		if err := repo.PutIfHash(ctx, enc, current.ContentHash); err != nil {
			return err
		}
		updated = enc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// List returns the user's sessions, optionally narrowed to one patient name.
// Only ciphertext and clear metadata leave the store.
func (s *Service) List(ctx context.Context, userID, patientName string) ([]models.EncryptedSession, error) {
	hash := ""
	if patientName != "" {
		hash = HashPatientName(userID, patientName)
	}
	return s.repo(s.db).List(ctx, userID, hash)
}

// Get loads and decrypts one session.
func (s *Service) Get(ctx context.Context, userID, sessionID string, key []byte) (*models.SessionRecord, error) {
	enc, err := s.repo(s.db).Get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.cipher.Decrypt(enc, key)
}

// Delete removes one session; idempotency is the caller's concern, a missing
// row reports ErrNotFound.
func (s *Service) Delete(ctx context.Context, userID, sessionID string) error {
	return s.repo(s.db).Delete(ctx, userID, sessionID)
}

// Reencryptor returns the rotation callback for the key manager: inside the
// rotation transaction it decrypts every session under the old key and seals
// it again under the new one. Re-encrypted sessions go back to pending so the
// next push propagates them.
func (s *Service) Reencryptor(userID string) keys.ReencryptFunc {
	return func(ctx context.Context, tx dbx.DBTX, oldKey, newKey []byte) error {
		repo := s.repo(tx)
		all, err := repo.List(ctx, userID, "")
		if err != nil {
			return err
		}
		for i := range all {
			enc := &all[i]
			rec, err := s.cipher.Decrypt(enc, oldKey)
			if err != nil {
				return fmt.Errorf("session %s: %w", enc.SessionID, err)
			}
			renc, err := s.cipher.Reencrypt(enc, rec, newKey)
			if err != nil {
				return fmt.Errorf("session %s: %w", enc.SessionID, err)
			}
			if err := repo.Put(ctx, renc); err != nil {
				return err
			}
		}
		return nil
	}
}
