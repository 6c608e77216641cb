package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStoreWithClient(client), mr
}

func TestSaveAndLookup(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	err := store.Save(ctx, "tok-1", Identity{UserID: "u1", UserName: "Ada"}, time.Hour)
	require.NoError(t, err)

	id, err := store.Lookup(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UserID)
	assert.Equal(t, "Ada", id.UserName)
	assert.False(t, id.CreatedAt.IsZero(), "Save stamps CreatedAt when unset")
}

func TestLookupUnknownToken(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Lookup(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupExpiredToken(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "tok-1", Identity{UserID: "u1", UserName: "Ada"}, time.Minute))

	mr.FastForward(2 * time.Minute)

	_, err := store.Lookup(ctx, "tok-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupRejectsEmptyUserID(t *testing.T) {
	store, mr := newTestStore(t)

	// A token mapping to a record with no user id must never authenticate.
	mr.Set("session:tok-1", `{"user_id":"","user_name":"ghost"}`)

	_, err := store.Lookup(context.Background(), "tok-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRevoke(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "tok-1", Identity{UserID: "u1", UserName: "Ada"}, time.Hour))
	require.NoError(t, store.Revoke(ctx, "tok-1"))

	_, err := store.Lookup(ctx, "tok-1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Revoking an already-gone token is not an error.
	assert.NoError(t, store.Revoke(ctx, "tok-1"))
}
