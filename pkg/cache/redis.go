package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements Service using Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// RedisOption adjusts the go-redis client options or the key prefix.
type RedisOption func(*redisSettings)

type redisSettings struct {
	host   string
	port   int
	prefix string
	client redis.Options
}

func WithRedisAddr(host string, port int) RedisOption {
	return func(s *redisSettings) {
		if host != "" {
			s.host = host
		}
		if port > 0 {
			s.port = port
		}
	}
}

func WithRedisAuth(password string, db int) RedisOption {
	return func(s *redisSettings) {
		s.client.Password = password
		s.client.DB = db
	}
}

// WithRedisPool sizes the pool. Zero values keep the go-redis defaults.
func WithRedisPool(size, minIdle int, timeout time.Duration) RedisOption {
	return func(s *redisSettings) {
		s.client.PoolSize = size
		s.client.MinIdleConns = minIdle
		s.client.PoolTimeout = timeout
	}
}

// WithRedisPrefix namespaces every key as "<prefix>:<key>".
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *redisSettings) { s.prefix = prefix }
}

// NewRedisCache connects and pings Redis before returning.
func NewRedisCache(opts ...RedisOption) (*RedisCache, error) {
	s := &redisSettings{host: "localhost", port: 6379, prefix: "signaldesk"}
	for _, opt := range opts {
		opt(s)
	}
	s.client.Addr = fmt.Sprintf("%s:%d", s.host, s.port)
	client := redis.NewClient(&s.client)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", s.client.Addr, err)
	}

	return &RedisCache{
		client: client,
		prefix: s.prefix,
	}, nil
}

// Client returns underlying redis client.
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

// Ping checks connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.wrapKey(key), data, expiration).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, c.wrapKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}
	return decode(data, dest)
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Unlink(ctx, c.wrapKeys(keys...)...).Err()
}

func (c *RedisCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	result, err := c.client.Exists(ctx, c.wrapKeys(keys...)...).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}

func (c *RedisCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, c.wrapKey(key), "locked", ttl).Result()
}

func (c *RedisCache) Unlock(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.wrapKey(key)).Err()
}

func (c *RedisCache) wrapKey(key string) string {
	return fmt.Sprintf("%s:%s", c.prefix, key)
}

func (c *RedisCache) wrapKeys(keys ...string) []string {
	wrapped := make([]string, len(keys))
	for i, key := range keys {
		wrapped[i] = c.wrapKey(key)
	}
	return wrapped
}
