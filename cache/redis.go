package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/acksell/foosball/kv"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379/0)
	URL string
	// TTL bounds how long a record may be served without reading the store.
	TTL time.Duration
	// Prefix namespaces every cache key, so deployments can share a server.
	Prefix string

	PoolSize     int
	MinIdleConns int
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		URL:          "redis://localhost:6379",
		TTL:          30 * time.Second,
		Prefix:       "foosball:",
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

type Redis struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

var _ kv.Cache = &Redis{}

// NewRedis connects to the server in cfg.URL and pings it.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisWithClient(client, cfg), nil
}

// NewRedisWithClient wraps an existing client, which the cache then owns.
func NewRedisWithClient(client *redis.Client, cfg RedisConfig) *Redis {
	return &Redis{client: client, ttl: cfg.TTL, prefix: cfg.Prefix}
}

func (r *Redis) Get(ctx context.Context, key string) (kv.Record, bool, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	rec, err := kv.DecodeRecord(data)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, rec kv.Record) error {
	data, err := kv.EncodeRecord(rec)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.prefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
