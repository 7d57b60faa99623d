package devices

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mlevitan/clinisync/internal/common"
	"github.com/mlevitan/clinisync/internal/localdb"
	"github.com/mlevitan/clinisync/internal/logging"
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

func newRegistry(t *testing.T, db *sql.DB, id string) *Registry {
	t.Helper()
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	return NewRegistry(db, StaticIdentity(id), logger)
}

func TestRegister_Idempotent(t *testing.T) {
	db := setupDB(t)
	r := newRegistry(t, db, "device-a")
	ctx := context.Background()

	d1, err := r.Register(ctx, "user-1", "Laptop", "linux")
	require.NoError(t, err)
	assert.Equal(t, "device-a", d1.DeviceID)
	assert.True(t, d1.IsCurrent)

	time.Sleep(5 * time.Millisecond)

	d2, err := r.Register(ctx, "user-1", "Laptop", "linux")
	require.NoError(t, err)

	list, err := r.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1, "re-registration must not create a duplicate row")

	assert.Equal(t, d1.AuthorizedAt, d2.AuthorizedAt)
	assert.True(t, d2.LastSync.After(d1.LastSync))
}

func TestRegister_HostDefaults(t *testing.T) {
	r := newRegistry(t, setupDB(t), "device-a")

	d, err := r.Register(context.Background(), "user-1", "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, d.DisplayName)
	assert.NotEmpty(t, d.DeviceType)
}

func TestList_FlagsCurrentDevice(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	a := newRegistry(t, db, "device-a")
	b := newRegistry(t, db, "device-b")

	_, err := a.Register(ctx, "user-1", "Laptop", "linux")
	require.NoError(t, err)
	_, err = b.Register(ctx, "user-1", "Phone", "android")
	require.NoError(t, err)

	list, err := a.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 2)

	current := map[string]bool{}
	for _, d := range list {
		current[d.DeviceID] = d.IsCurrent
	}
	assert.True(t, current["device-a"])
	assert.False(t, current["device-b"])
}

func TestDeactivate(t *testing.T) {
	db := setupDB(t)
	r := newRegistry(t, db, "device-a")
	ctx := context.Background()

	_, err := r.Register(ctx, "user-1", "Laptop", "linux")
	require.NoError(t, err)

	require.NoError(t, r.Deactivate(ctx, "user-1", "device-a"))

	list, err := r.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, r.Deactivate(ctx, "user-1", "ghost"), common.ErrNotFound)
}

func TestHostIdentity_StableWithinProcess(t *testing.T) {
	var h HostIdentity
	id1, err := h.DeviceID()
	require.NoError(t, err)
	id2, err := h.DeviceID()
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 16)
}
