package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"jobmatch/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisWithClient(client, time.Minute, zap.NewNop()), mr
}

type payload struct {
	Name  string    `json:"name"`
	Score []float32 `json:"score"`
}

func TestJSONRoundTrip(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, r.SetJSON(ctx, "k", payload{Name: "a", Score: []float32{0.5}}, 0))

	var got payload
	ok, err := r.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, payload{Name: "a", Score: []float32{0.5}}, got)
	assert.Equal(t, time.Minute, mr.TTL("k"))

	ok, err = r.GetJSON(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetJSONExplicitTTL(t *testing.T) {
	r, mr := newTestRedis(t)
	require.NoError(t, r.SetJSON(context.Background(), "k", 1, 5*time.Second))
	assert.Equal(t, 5*time.Second, mr.TTL("k"))

	mr.FastForward(6 * time.Second)
	var v int
	ok, err := r.GetJSON(context.Background(), "k", &v)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetIfNotExists(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	ok, err := r.SetIfNotExists(ctx, "discovery:lock:abc", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.SetIfNotExists(ctx, "discovery:lock:abc", "1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = r.SetIfNotExists(ctx, "discovery:lock:abc", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeleteByPattern(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()
	require.NoError(t, r.SetJSON(ctx, "discovery:result:1", 1, 0))
	require.NoError(t, r.SetJSON(ctx, "discovery:result:2", 2, 0))
	require.NoError(t, r.SetJSON(ctx, "emb:m:x", 3, 0))

	require.NoError(t, r.DeleteByPattern(ctx, "discovery:result:*"))

	assert.False(t, mr.Exists("discovery:result:1"))
	assert.False(t, mr.Exists("discovery:result:2"))
	assert.True(t, mr.Exists("emb:m:x"))

	require.NoError(t, r.Delete(ctx, "emb:m:x"))
	assert.False(t, mr.Exists("emb:m:x"))
}

func TestBypassWhenUnavailable(t *testing.T) {
	r := NewRedis(context.Background(), config.RedisConfig{Addr: "127.0.0.1:1"}, nil)
	ctx := context.Background()

	assert.NoError(t, r.SetJSON(ctx, "k", 1, 0))
	var v int
	ok, err := r.GetJSON(ctx, "k", &v)
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.SetIfNotExists(ctx, "lock", "1", 0)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.ErrorIs(t, r.Ping(ctx), ErrUnavailable)
	assert.NoError(t, r.Close())
}

func TestServerLossIsReported(t *testing.T) {
	r, mr := newTestRedis(t)
	mr.Close()

	var v int
	_, err := r.GetJSON(context.Background(), "k", &v)
	assert.Error(t, err)
}
