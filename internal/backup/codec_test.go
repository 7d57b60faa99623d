package backup

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mlevitan/clinisync/internal/common"
	"github.com/mlevitan/clinisync/internal/cryptox"
	"github.com/mlevitan/clinisync/internal/devices"
	"github.com/mlevitan/clinisync/internal/localdb"
	"github.com/mlevitan/clinisync/internal/logging"
	"github.com/mlevitan/clinisync/internal/models"
	"github.com/mlevitan/clinisync/internal/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, localdb.RunMigrations(context.Background(), db))
	return db
}

func newCodec(t *testing.T, db *sql.DB) *Codec {
	t.Helper()
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	return NewCodec(db, devices.StaticIdentity("device-a"), logger)
}

func newService(t *testing.T, db *sql.DB) *sessions.Service {
	t.Helper()
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	return sessions.NewService(db, sessions.NewCipher(cryptox.TestConfig()), logger)
}

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

func TestExportImport_RoundTrip(t *testing.T) {
	srcDB := setupDB(t)
	svc := newService(t, srcDB)
	ctx := context.Background()
	key := testKey()

	enc1, err := svc.Record(ctx, "user-1", &models.SessionRecord{
		PatientName: "Jane Roe", SessionDate: "2025-03-01", Text: "first session",
	}, key)
	require.NoError(t, err)
	_, err = svc.Record(ctx, "user-1", &models.SessionRecord{
		PatientName: "John Doe", SessionDate: "2025-03-02", Text: "second session",
	}, key)
	require.NoError(t, err)

	blob, err := newCodec(t, srcDB).Export(ctx, "user-1", key)
	require.NoError(t, err)

	dstDB := setupDB(t)
	report, err := newCodec(t, dstDB).Import(ctx, "user-1", blob, key)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Imported)
	assert.Zero(t, report.Skipped)

	dstSvc := newService(t, dstDB)
	rec, err := dstSvc.Get(ctx, "user-1", enc1.SessionID, key)
	require.NoError(t, err)
	assert.Equal(t, "first session", rec.Text)

	list, err := dstSvc.List(ctx, "user-1", "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, s := range list {
		assert.Equal(t, models.SyncStatusPending, s.SyncStatus, "restored sessions must be pushed again")
	}
}

func TestImport_WrongKey(t *testing.T) {
	db := setupDB(t)
	svc := newService(t, db)
	ctx := context.Background()

	_, err := svc.Record(ctx, "user-1", &models.SessionRecord{
		PatientName: "Jane Roe", SessionDate: "2025-03-01", Text: "note",
	}, testKey())
	require.NoError(t, err)

	blob, err := newCodec(t, db).Export(ctx, "user-1", testKey())
	require.NoError(t, err)

	_, err = newCodec(t, setupDB(t)).Import(ctx, "user-1", blob, bytes.Repeat([]byte{0x13}, 32))
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)
}

func TestImport_WrongOwner(t *testing.T) {
	db := setupDB(t)
	svc := newService(t, db)
	ctx := context.Background()
	key := testKey()

	_, err := svc.Record(ctx, "user-1", &models.SessionRecord{
		PatientName: "Jane Roe", SessionDate: "2025-03-01", Text: "note",
	}, key)
	require.NoError(t, err)

	blob, err := newCodec(t, db).Export(ctx, "user-1", key)
	require.NoError(t, err)

	_, err = newCodec(t, setupDB(t)).Import(ctx, "user-2", blob, key)
	assert.ErrorIs(t, err, common.ErrWrongOwner)
}

func TestImport_TruncatedBlob(t *testing.T) {
	_, err := newCodec(t, setupDB(t)).Import(context.Background(), "user-1", []byte{0x01, 0x02}, testKey())
	assert.ErrorIs(t, err, common.ErrCorrupt)
}

func TestImport_SkipsMalformedEntries(t *testing.T) {
	ctx := context.Background()
	key := testKey()
	cipher := sessions.NewCipher(cryptox.TestConfig())

	good, err := cipher.Encrypt("user-1", &models.SessionRecord{
		PatientName: "Jane Roe", SessionDate: "2025-03-01", Text: "good entry",
	}, key)
	require.NoError(t, err)

	tampered, err := cipher.Encrypt("user-1", &models.SessionRecord{
		PatientName: "John Doe", SessionDate: "2025-03-02", Text: "tampered entry",
	}, key)
	require.NoError(t, err)
	tampered.Ciphertext[0] ^= 0xff // content hash no longer matches

	foreign, err := cipher.Encrypt("user-2", &models.SessionRecord{
		PatientName: "Someone Else", SessionDate: "2025-03-03", Text: "foreign entry",
	}, key)
	require.NoError(t, err)

	env := envelope{
		Owner:      "user-1",
		ExportedAt: time.Now().UTC(),
		DeviceID:   "device-a",
		Count:      3,
		Sessions:   []models.EncryptedSession{*good, *tampered, *foreign},
	}
	plaintext, err := json.Marshal(env)
	require.NoError(t, err)
	ciphertext, nonce, err := cryptox.SealBytes(plaintext, key)
	require.NoError(t, err)
	blob := append(nonce, ciphertext...)

	db := setupDB(t)
	report, err := newCodec(t, db).Import(ctx, "user-1", blob, key)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 2, report.Skipped)

	list, err := newService(t, db).List(ctx, "user-1", "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, good.SessionID, list[0].SessionID)
}
