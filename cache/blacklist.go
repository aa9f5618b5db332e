package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistKeyPrefix = "token_blacklist:"

// Blacklist records revoked refresh tokens by their jti until they expire.
type Blacklist interface {
	Add(ctx context.Context, jti string, expiresAt time.Time) error
	Contains(ctx context.Context, jti string) (bool, error)
}

// RedisBlacklist stores one key per revoked token with a TTL matching the
// token's remaining lifetime, so entries disappear once the token would
// have expired anyway.
type RedisBlacklist struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisBlacklist creates a Blacklist on client.
func NewRedisBlacklist(client *redis.Client) *RedisBlacklist {
	return &RedisBlacklist{client: client, now: time.Now}
}

// WithClock replaces the time source used to compute TTLs.
func (b *RedisBlacklist) WithClock(now func() time.Time) *RedisBlacklist {
	b.now = now
	return b
}

func blacklistKey(jti string) string {
	return blacklistKeyPrefix + jti
}

func (b *RedisBlacklist) Add(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(b.now())
	if ttl <= 0 {
		// Already expired; nothing can use it.
		return nil
	}
	if err := b.client.Set(ctx, blacklistKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token %s: %w", jti, err)
	}
	return nil
}

func (b *RedisBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, blacklistKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist for %s: %w", jti, err)
	}
	return n > 0, nil
}
