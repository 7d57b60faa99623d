// Package cryptox implements the key derivation and authenticated encryption
// primitives used by the session engine: argon2id for password-based key
// derivation and AES-GCM for sealing serialized records.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"

	"github.com/mlevitan/clinisync/internal/common"
	"golang.org/x/crypto/argon2"
)

// Config carries the KDF work factor and key sizes. It is passed explicitly
// to the components that derive or use keys; there is no package-level state.
type Config struct {
	// Argon2id parameters.
	Time      uint32
	MemoryKiB uint32
	Threads   uint8

	// KeyLen is the derived symmetric key length in bytes. Must be a valid
	// AES key size (16, 24 or 32).
	KeyLen uint32

	// SaltLen is the per-user salt length in bytes.
	SaltLen int
}

// DefaultConfig returns the production parameters: argon2id with 64 MiB of
// memory and a 256-bit key.
func DefaultConfig() Config {
	return Config{Time: 1, MemoryKiB: 64 * 1024, Threads: 4, KeyLen: 32, SaltLen: 32}
}

// TestConfig returns deliberately cheap KDF parameters for tests.
func TestConfig() Config {
	return Config{Time: 1, MemoryKiB: 64, Threads: 1, KeyLen: 32, SaltLen: 16}
}

// DeriveKey runs argon2id over the password and salt and returns a
// fixed-length symmetric key. Deterministic for identical inputs.
func (c Config) DeriveKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, c.Time, c.MemoryKiB, c.Threads, c.KeyLen)
}

// NewSalt returns a fresh random salt of the configured length.
func (c Config) NewSalt() []byte {
	return common.GenerateRandByteArray(c.SaltLen)
}

const nonceSize = 12

// Seal serializes v to JSON and encrypts it with AES-GCM under key.
// A fresh 12-byte nonce is generated per call and returned alongside the
// ciphertext; the authentication tag covers the whole ciphertext.
func Seal(v any, key []byte) (ciphertext, nonce []byte, err error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	return SealBytes(plaintext, key)
}

// SealBytes encrypts an opaque plaintext with AES-GCM under key.
func SealBytes(plaintext, key []byte) (ciphertext, nonce []byte, err error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}

	return aesgcm.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Open verifies the authentication tag, decrypts the ciphertext and
// unmarshals the resulting JSON into v. Any failure (wrong key, truncated or
// tampered ciphertext, bad nonce) is reported as ErrDecryptionFailed so the
// error shape does not leak which check failed.
func Open(ciphertext, nonce, key []byte, v any) error {
	plaintext, err := OpenBytes(ciphertext, nonce, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
	}
	return nil
}

// OpenBytes verifies and decrypts an opaque ciphertext. All failures map to
// ErrDecryptionFailed.
func OpenBytes(ciphertext, nonce, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
	}
	if len(nonce) != nonceSize {
		return nil, common.ErrDecryptionFailed
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, common.ErrDecryptionFailed
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
