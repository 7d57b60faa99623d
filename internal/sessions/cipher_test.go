package sessions

import (
	"testing"

	"github.com/mlevitan/clinisync/internal/common"
	"github.com/mlevitan/clinisync/internal/cryptox"
	"github.com/mlevitan/clinisync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() *models.SessionRecord {
	return &models.SessionRecord{
		PatientName: "Dana",
		SessionDate: "2025-01-01",
		Text:        "patient reported improved sleep",
		QualityMode: "high",
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	c := NewCipher(cryptox.TestConfig())
	key := common.GenerateRandByteArray(32)

	enc, err := c.Encrypt("user-1", testRecord(), key)
	require.NoError(t, err)

	assert.NotEmpty(t, enc.SessionID)
	assert.Equal(t, "user-1", enc.UserID)
	assert.Equal(t, HashPatientName("user-1", "Dana"), enc.PatientNameHash)
	assert.Equal(t, ContentHash(enc.Ciphertext), enc.ContentHash)
	assert.Equal(t, models.SyncStatusPending, enc.SyncStatus)
	assert.Equal(t, 4, enc.WordCount)

	rec, err := c.Decrypt(enc, key)
	require.NoError(t, err)
	assert.Equal(t, "Dana", rec.PatientName)
	assert.Equal(t, "patient reported improved sleep", rec.Text)
}

func TestDecrypt_WrongKey(t *testing.T) {
	c := NewCipher(cryptox.TestConfig())
	key1 := common.GenerateRandByteArray(32)
	key2 := common.GenerateRandByteArray(32)

	enc, err := c.Encrypt("user-1", testRecord(), key1)
	require.NoError(t, err)

	_, err = c.Decrypt(enc, key2)
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)
}

func TestDecrypt_TamperedCiphertext(t *testing.T) {
	c := NewCipher(cryptox.TestConfig())
	key := common.GenerateRandByteArray(32)

	enc, err := c.Encrypt("user-1", testRecord(), key)
	require.NoError(t, err)

	enc.Ciphertext[len(enc.Ciphertext)/2] ^= 0x40

	_, err = c.Decrypt(enc, key)
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)
}

func TestHashPatientName_Deterministic(t *testing.T) {
	h1 := HashPatientName("user-1", "Dana")
	h2 := HashPatientName("user-1", "Dana")
	h3 := HashPatientName("user-1", "Rina")
	h4 := HashPatientName("user-2", "Dana")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.NotEqual(t, h1, h4)
}

func TestEncrypt_SameDaySessionsGetDistinctIDs(t *testing.T) {
	c := NewCipher(cryptox.TestConfig())
	key := common.GenerateRandByteArray(32)

	enc1, err := c.Encrypt("user-1", testRecord(), key)
	require.NoError(t, err)
	enc2, err := c.Encrypt("user-1", testRecord(), key)
	require.NoError(t, err)

	assert.NotEqual(t, enc1.SessionID, enc2.SessionID)
}

func TestReencrypt_KeepsIdentityChangesHash(t *testing.T) {
	c := NewCipher(cryptox.TestConfig())
	key := common.GenerateRandByteArray(32)

	enc, err := c.Encrypt("user-1", testRecord(), key)
	require.NoError(t, err)

	rec := testRecord()
	rec.Text = "amended note"
	rec.WordCount = 2
	renc, err := c.Reencrypt(enc, rec, key)
	require.NoError(t, err)

	assert.Equal(t, enc.SessionID, renc.SessionID)
	assert.Equal(t, enc.CreatedAt, renc.CreatedAt)
	assert.NotEqual(t, enc.ContentHash, renc.ContentHash)
	assert.Equal(t, models.SyncStatusPending, renc.SyncStatus)

	got, err := c.Decrypt(renc, key)
	require.NoError(t, err)
	assert.Equal(t, "amended note", got.Text)
}
