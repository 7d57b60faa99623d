package cryptox

import (
	"testing"

	"github.com/mlevitan/clinisync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	cfg := TestConfig()
	password := []byte("clinic-pw")
	salt := []byte("fixed-salt-16byt")

	key1 := cfg.DeriveKey(password, salt)
	key2 := cfg.DeriveKey(password, salt)

	assert.Equal(t, key1, key2)
	assert.Len(t, key1, int(cfg.KeyLen))
}

func TestDeriveKey_DifferentInputs(t *testing.T) {
	cfg := TestConfig()
	password := []byte("clinic-pw")

	key1 := cfg.DeriveKey(password, []byte("salt-1"))
	key2 := cfg.DeriveKey(password, []byte("salt-2"))
	key3 := cfg.DeriveKey([]byte("other-pw"), []byte("salt-1"))

	assert.NotEqual(t, key1, key2)
	assert.NotEqual(t, key1, key3)
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key := common.GenerateRandByteArray(32)

	type payload struct {
		Patient string `json:"patient"`
		Text    string `json:"text"`
	}
	in := payload{Patient: "Dana", Text: "session notes"}

	ct, nonce, err := Seal(in, key)
	require.NoError(t, err)
	assert.NotEmpty(t, ct)
	assert.Len(t, nonce, nonceSize)

	var out payload
	require.NoError(t, Open(ct, nonce, key, &out))
	assert.Equal(t, in, out)
}

func TestOpen_WrongKey(t *testing.T) {
	key1 := common.GenerateRandByteArray(32)
	key2 := common.GenerateRandByteArray(32)

	ct, nonce, err := Seal(map[string]string{"a": "b"}, key1)
	require.NoError(t, err)

	var out map[string]string
	err = Open(ct, nonce, key2, &out)
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)
}

func TestOpen_TamperedCiphertext(t *testing.T) {
	key := common.GenerateRandByteArray(32)

	ct, nonce, err := Seal(map[string]string{"a": "b"}, key)
	require.NoError(t, err)

	ct[0] ^= 0x01

	var out map[string]string
	err = Open(ct, nonce, key, &out)
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)
}

func TestOpen_TruncatedCiphertext(t *testing.T) {
	key := common.GenerateRandByteArray(32)

	ct, nonce, err := Seal(map[string]string{"a": "b"}, key)
	require.NoError(t, err)

	var out map[string]string
	err = Open(ct[:len(ct)/2], nonce, key, &out)
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)
}

func TestOpenBytes_BadNonceSize(t *testing.T) {
	key := common.GenerateRandByteArray(32)
	_, err := OpenBytes([]byte("x"), []byte("short"), key)
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)
}
