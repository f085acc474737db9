package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newRedisSlot(t *testing.T) (*RedisSlot, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisSlot(client), mr
}

func TestRedisSlotRoundTrip(t *testing.T) {
	slot, mr := newRedisSlot(t)
	s := New(slot)
	ctx := context.Background()
	want := sampleConversation()

	require.NoError(t, s.Save(ctx, want))
	assert.True(t, mr.Exists(Key))

	got, err := s.LoadResult(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRedisSlotMissingKey(t *testing.T) {
	slot, _ := newRedisSlot(t)

	_, err := slot.Get(context.Background(), Key)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := New(slot).LoadResult(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, got)
}

func TestRedisSlotDelete(t *testing.T) {
	slot, mr := newRedisSlot(t)
	s := New(slot)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleConversation()))
	require.NoError(t, s.Clear(ctx))
	assert.False(t, mr.Exists(Key))
	assert.Empty(t, s.Load(ctx))

	require.NoError(t, slot.Delete(ctx, Key), "deleting an absent key is not an error")
}

func TestRedisSlotCorruptValue(t *testing.T) {
	slot, mr := newRedisSlot(t)
	require.NoError(t, mr.Set(Key, "{not json"))

	got, err := New(slot).LoadResult(context.Background())
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.Empty(t, got)
}

func TestRedisSlotUnavailable(t *testing.T) {
	slot, mr := newRedisSlot(t)
	mr.Close()

	_, err := slot.Get(context.Background(), Key)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Empty(t, New(slot).Load(context.Background()))
}

func TestOpenUsesReachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	slot, closeSlot, err := Open(context.Background(), Options{
		DBPath:    t.TempDir() + "/unused.db",
		RedisAddr: mr.Addr(),
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer closeSlot()

	assert.IsType(t, &RedisSlot{}, slot)
	require.NoError(t, New(slot).Save(context.Background(), sampleConversation()))
	assert.True(t, mr.Exists(Key))
}
