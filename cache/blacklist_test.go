package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestRedisBlacklistAddContains(t *testing.T) {
	ctx := context.Background()
	client, mr := setupTestRedis(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bl := NewRedisBlacklist(client).WithClock(func() time.Time { return now })

	ok, err := bl.Contains(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, bl.Add(ctx, "jti-1", now.Add(time.Hour)))

	ok, err = bl.Contains(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Hour, mr.TTL("token_blacklist:jti-1"))

	mr.FastForward(time.Hour + time.Second)
	ok, err = bl.Contains(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisBlacklistSkipsExpired(t *testing.T) {
	ctx := context.Background()
	client, mr := setupTestRedis(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bl := NewRedisBlacklist(client).WithClock(func() time.Time { return now })

	require.NoError(t, bl.Add(ctx, "old", now.Add(-time.Minute)))
	assert.False(t, mr.Exists("token_blacklist:old"))
}

func TestRedisBlacklistUnavailable(t *testing.T) {
	client, mr := setupTestRedis(t)
	bl := NewRedisBlacklist(client)
	mr.Close()

	_, err := bl.Contains(context.Background(), "x")
	assert.Error(t, err)
}
