package metadata

import (
	"context"
	"database/sql"
	"testing"

	"github.com/mlevitan/clinisync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE metadata (name TEXT PRIMARY KEY, value BLOB NOT NULL);`)
	require.NoError(t, err)
	return db
}

func TestSetGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "cursor", []byte("42")))

	v, err := r.Get(ctx, "cursor")
	require.NoError(t, err)
	assert.Equal(t, []byte("42"), v)

	// overwrite
	require.NoError(t, r.Set(ctx, "cursor", []byte("43")))
	v, err = r.Get(ctx, "cursor")
	require.NoError(t, err)
	assert.Equal(t, []byte("43"), v)
}

func TestGet_Missing(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	_, err := r.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteAndClear(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "a", []byte("1")))
	require.NoError(t, r.Set(ctx, "b", []byte("2")))

	require.NoError(t, r.Delete(ctx, "a"))
	_, err := r.Get(ctx, "a")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, r.Clear(ctx))
	_, err = r.Get(ctx, "b")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
