package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConnector stores cache entries in redis so lookups survive restarts
// and are shared between replicas.
type RedisConnector struct {
	client     *redis.Client
	defaultTTL time.Duration
}

// NewRedisConnector connects to the redis instance at url
// (redis://host:port/db) and verifies the connection.
func NewRedisConnector(ctx context.Context, url string, defaultTTL time.Duration) (*RedisConnector, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &RedisConnector{client: client, defaultTTL: defaultTTL}, nil
}

// Get retrieves a value by key.
func (r *RedisConnector) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores a value.
func (r *RedisConnector) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close closes the client.
func (r *RedisConnector) Close() error {
	return r.client.Close()
}
