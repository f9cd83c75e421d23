// Package cache stores rendered personalization blocks. Every failure is
// logged and treated as a miss; the cache is never authoritative.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// KeyPrefix namespaces context-block keys.
const KeyPrefix = "mindmate:context:"

// Redis is a ContextCache backed by go-redis.
type Redis struct {
	client *redis.Client
}

// NewRedis pings client and wraps it.
func NewRedis(ctx context.Context, client *redis.Client) (*Redis, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{client: client}, nil
}

// Dial connects to addr and returns a ready cache.
func Dial(ctx context.Context, addr, password string, db int) (*Redis, error) {
	return NewRedis(ctx, redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}))
}

// Get returns the cached block for key.
func (r *Redis) Get(ctx context.Context, key string) (string, bool) {
	v, err := r.client.Get(ctx, KeyPrefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("context cache get failed")
		}
		return "", false
	}
	return v, true
}

// Set stores value under key for ttl.
func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := r.client.Set(ctx, KeyPrefix+key, value, ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("context cache set failed")
	}
}

// Delete removes key.
func (r *Redis) Delete(ctx context.Context, key string) {
	if err := r.client.Del(ctx, KeyPrefix+key).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("context cache delete failed")
	}
}

// Close closes the underlying client.
func (r *Redis) Close() error { return r.client.Close() }
