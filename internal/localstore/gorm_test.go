package localstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSnapshotTestDB(t *testing.T) *GormStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS cart_snapshots (
  scope_key TEXT PRIMARY KEY,
  payload TEXT NOT NULL,
  updated_at DATETIME NOT NULL
);`
	require.NoError(t, db.Exec(schema).Error)

	return NewGormStoreFromConn(db)
}

func TestGormStoreMissingKeyIsAbsent(t *testing.T) {
	store := setupSnapshotTestDB(t)

	payload, found, err := store.Get(context.Background(), "guest_cart")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, payload)
}

func TestGormStoreSetOverwrites(t *testing.T) {
	store := setupSnapshotTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "cart_u1", []byte(`[{"productId":"a"}]`)))
	require.NoError(t, store.Set(ctx, "cart_u1", []byte(`[{"productId":"b"}]`)))

	payload, found, err := store.Get(ctx, "cart_u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `[{"productId":"b"}]`, string(payload))
}

func TestGormStoreRemoveIsIdempotent(t *testing.T) {
	store := setupSnapshotTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "guest_cart", []byte(`[]`)))
	require.NoError(t, store.Remove(ctx, "guest_cart"))
	require.NoError(t, store.Remove(ctx, "guest_cart"))

	_, found, err := store.Get(ctx, "guest_cart")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGormStoreKeysAreIsolated(t *testing.T) {
	store := setupSnapshotTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "guest_cart", []byte(`["guest"]`)))
	require.NoError(t, store.Set(ctx, "cart_u1", []byte(`["user"]`)))

	guest, _, err := store.Get(ctx, "guest_cart")
	require.NoError(t, err)
	user, _, err := store.Get(ctx, "cart_u1")
	require.NoError(t, err)

	assert.NotEqual(t, string(guest), string(user))
}
