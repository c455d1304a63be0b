package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the key used when none is configured.
const DefaultRedisKey = "provenance:snapshot"

// RedisBackend stores the encoded snapshot under a single key.
type RedisBackend struct {
	client *redis.Client
	key    string
}

// NewRedisBackend creates a RedisBackend. An empty key selects DefaultRedisKey.
func NewRedisBackend(client *redis.Client, key string) *RedisBackend {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisBackend{client: client, key: key}
}

// DialRedis parses url, connects, and pings the server.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Name implements Backend.
func (b *RedisBackend) Name() string { return "redis" }

// Save implements Backend.
func (b *RedisBackend) Save(ctx context.Context, snap *Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	if err := b.client.Set(ctx, b.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", b.key, err)
	}
	return nil
}

// Load implements Backend.
func (b *RedisBackend) Load(ctx context.Context) (*Snapshot, error) {
	data, err := b.client.Get(ctx, b.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", b.key, err)
	}
	return Decode(data)
}
