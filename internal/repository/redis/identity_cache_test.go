package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errUnknown = errors.New("unknown customer")

type countingLookup struct {
	ids   map[uuid.UUID]uuid.UUID
	calls int
}

func (l *countingLookup) MapPublicToPrivate(_ context.Context, pub uuid.UUID) (uuid.UUID, error) {
	l.calls++
	id, ok := l.ids[pub]
	if !ok {
		return uuid.Nil, errUnknown
	}
	return id, nil
}

func newCache(t *testing.T) (*IdentityCache, *countingLookup, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	lookup := &countingLookup{ids: map[uuid.UUID]uuid.UUID{}}
	return NewIdentityCache(rdb, lookup, time.Hour, zap.NewNop()), lookup, mr
}

func TestIdentityCache_ReadThrough(t *testing.T) {
	cache, lookup, mr := newCache(t)
	pub, priv := uuid.New(), uuid.New()
	lookup.ids[pub] = priv
	ctx := context.Background()

	got, err := cache.MapPublicToPrivate(ctx, pub)
	require.NoError(t, err)
	assert.Equal(t, priv, got)
	assert.Equal(t, 1, lookup.calls)

	got, err = cache.MapPublicToPrivate(ctx, pub)
	require.NoError(t, err)
	assert.Equal(t, priv, got)
	assert.Equal(t, 1, lookup.calls)

	stored, err := mr.Get(identityKey(pub))
	require.NoError(t, err)
	assert.Equal(t, priv.String(), stored)
	assert.Equal(t, time.Hour, mr.TTL(identityKey(pub)))
}

func TestIdentityCache_MissesAreNotCached(t *testing.T) {
	cache, lookup, mr := newCache(t)
	pub := uuid.New()

	_, err := cache.MapPublicToPrivate(context.Background(), pub)
	assert.ErrorIs(t, err, errUnknown)
	_, err = cache.MapPublicToPrivate(context.Background(), pub)
	assert.ErrorIs(t, err, errUnknown)

	assert.Equal(t, 2, lookup.calls)
	assert.False(t, mr.Exists(identityKey(pub)))
}

func TestIdentityCache_CorruptEntryFallsThrough(t *testing.T) {
	cache, lookup, mr := newCache(t)
	pub, priv := uuid.New(), uuid.New()
	lookup.ids[pub] = priv
	require.NoError(t, mr.Set(identityKey(pub), "garbage"))

	got, err := cache.MapPublicToPrivate(context.Background(), pub)
	require.NoError(t, err)
	assert.Equal(t, priv, got)
	assert.Equal(t, 1, lookup.calls)
}

func TestIdentityCache_RedisDownFallsThrough(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = rdb.Close() })

	pub, priv := uuid.New(), uuid.New()
	lookup := &countingLookup{ids: map[uuid.UUID]uuid.UUID{pub: priv}}
	cache := NewIdentityCache(rdb, lookup, time.Hour, zap.NewNop())

	got, err := cache.MapPublicToPrivate(context.Background(), pub)
	require.NoError(t, err)
	assert.Equal(t, priv, got)
}
