package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig captures the connection parameters for the shared Redis instance.
type RedisConfig struct {
	Address  string
	Username string
	Password string
	DB       int
	TLS      bool
	Timeout  time.Duration
}

const defaultRedisTimeout = 5 * time.Second

// NewRedisClient creates a go-redis client and pings it so that misconfiguration
// surfaces during start-up.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	cfg.Address = strings.TrimSpace(cfg.Address)
	if cfg.Address == "" {
		return nil, errors.New("redis: address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRedisTimeout
	}

	opts := &redis.Options{
		Addr:         cfg.Address,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Address, err)
	}
	return client, nil
}

type setNXClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
}

// RedisLocker claims keys with SET NX PX so that only one replica wins per key.
type RedisLocker struct {
	client setNXClient
	holder string
}

// NewRedisLocker wraps a go-redis client. holder is stored as the key value to
// help operators see which replica ran a cycle.
func NewRedisLocker(client *redis.Client, holder string) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("redis locker: client is required")
	}
	return &RedisLocker{client: client, holder: holder}, nil
}

// Acquire implements Locker.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, errors.New("redis locker: ttl must be positive")
	}
	ok, err := l.client.SetNX(ctx, prefixed(key), l.holder, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis locker: setnx %s: %w", key, err)
	}
	return ok, nil
}
