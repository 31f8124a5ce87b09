package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "auth:revoked:"

// Redis is a Redis-backed Store. Tokens are stored as SHA-256 hashes so the
// denylist never holds raw bearer material.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// Config holds Redis connection settings for the revocation store.
type Config struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

// NewRedis connects a Redis-backed revocation store and pings it once.
func NewRedis(ctx context.Context, cfg Config) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Redis{client: client, prefix: prefix}, nil
}

// NewRedisWithClient wraps an existing client (tests use miniredis here).
func NewRedisWithClient(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return r.prefix + hex.EncodeToString(sum[:])
}

// Revoke denylists the token for its remaining lifetime. Idempotent: revoking
// an already-revoked token refreshes the entry, which only ever shortens or
// keeps its bound.
func (r *Redis) Revoke(ctx context.Context, rawToken string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.key(rawToken), 1, ttl).Err()
}

// IsRevoked reports whether the token is currently denylisted.
func (r *Redis) IsRevoked(ctx context.Context, rawToken string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(rawToken)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close releases the underlying client.
func (r *Redis) Close() error { return r.client.Close() }
