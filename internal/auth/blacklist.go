package auth

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Blacklist tracks revoked token IDs until their natural expiry.
type Blacklist interface {
	Add(ctx context.Context, jti string, ttl time.Duration) error
	Contains(ctx context.Context, jti string) bool
}

// RedisBlacklist keys revoked jtis in Redis with a TTL matching the token's
// remaining lifetime. An unreachable Redis degrades to treating tokens as
// not revoked rather than locking every caller out.
type RedisBlacklist struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisBlacklist(client *redis.Client, logger *zap.Logger) *RedisBlacklist {
	return &RedisBlacklist{client: client, logger: logger}
}

func (b *RedisBlacklist) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if err := b.client.Set(ctx, "blacklist:"+jti, "1", ttl).Err(); err != nil {
		b.logger.Warn("failed to blacklist token", zap.String("jti", jti), zap.Error(err))
		return err
	}
	return nil
}

func (b *RedisBlacklist) Contains(ctx context.Context, jti string) bool {
	n, err := b.client.Exists(ctx, "blacklist:"+jti).Result()
	if err != nil {
		b.logger.Warn("blacklist lookup failed", zap.String("jti", jti), zap.Error(err))
		return false
	}
	return n > 0
}

// MemoryBlacklist is an in-process Blacklist for single-node deployments
// and tests.
type MemoryBlacklist struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{entries: make(map[string]time.Time)}
}

func (b *MemoryBlacklist) Add(ctx context.Context, jti string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[jti] = time.Now().Add(ttl)
	return nil
}

func (b *MemoryBlacklist) Contains(ctx context.Context, jti string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	expiry, ok := b.entries[jti]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(b.entries, jti)
		return false
	}
	return true
}
