package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/kapu/discord-dispatch-bot/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type setCall struct {
	key   string
	value any
	ttl   time.Duration
}

// fakeRedis answers the three commands the busy store issues; anything else
// hits the nil embedded interface and panics.
type fakeRedis struct {
	redis.Cmdable
	values map[string]string
	sets   []setCall
	dels   []string
	err    error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.sets = append(f.sets, setCall{key: key, value: value, ttl: expiration})
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.values[key] = "1"
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.dels = append(f.dels, keys...)
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func newTestRedisStore(client *fakeRedis) *RedisBusyStore {
	return newRedisBusyStore(client, RedisConfig{KeyPrefix: "busy:", TTL: 15 * time.Minute}, zap.NewNop())
}

func TestRedisBusyStoreMissingKeyIsIdle(t *testing.T) {
	store := newTestRedisStore(newFakeRedis())

	busy, err := store.IsBusy(context.Background(), "ping:42")
	require.NoError(t, err)
	assert.False(t, busy)
}

func TestRedisBusyStoreAcquireSetsPrefixedKeyWithTTL(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	store := newTestRedisStore(client)

	require.NoError(t, store.SetBusy(ctx, "ping:42", true))
	require.Len(t, client.sets, 1)
	assert.Equal(t, setCall{key: "busy:ping:42", value: "1", ttl: 15 * time.Minute}, client.sets[0])

	busy, err := store.IsBusy(ctx, "ping:42")
	require.NoError(t, err)
	assert.True(t, busy)
}

func TestRedisBusyStoreReleaseDeletesKey(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	store := newTestRedisStore(client)

	require.NoError(t, store.SetBusy(ctx, "ping:42", true))
	require.NoError(t, store.SetBusy(ctx, "ping:42", false))
	assert.Equal(t, []string{"busy:ping:42"}, client.dels)

	busy, err := store.IsBusy(ctx, "ping:42")
	require.NoError(t, err)
	assert.False(t, busy)

	// releasing an idle key is not an error
	require.NoError(t, store.SetBusy(ctx, "ping:42", false))
}

func TestRedisBusyStoreErrorsAreCacheErrors(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	client.err = errors.New("connection refused")
	store := newTestRedisStore(client)

	tests := []struct {
		name string
		op   string
		call func() error
	}{
		{"get", "get", func() error { _, err := store.IsBusy(ctx, "k"); return err }},
		{"set", "set", func() error { return store.SetBusy(ctx, "k", true) }},
		{"del", "del", func() error { return store.SetBusy(ctx, "k", false) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)

			var cacheErr *apperrors.CacheError
			require.ErrorAs(t, err, &cacheErr)
			assert.Equal(t, tt.op, cacheErr.Operation)
			assert.Equal(t, "k", cacheErr.Key)
			assert.ErrorIs(t, err, client.err)
		})
	}
}

func TestRedisBusyStoreCloseWithoutConnection(t *testing.T) {
	assert.NoError(t, newTestRedisStore(newFakeRedis()).Close())
}
