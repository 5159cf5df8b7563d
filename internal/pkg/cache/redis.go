package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/akbargherbal/gemini-fusion/internal/config"
)

// ErrMiss is returned by Get when the key does not exist (or expired).
var ErrMiss = errors.New("cache miss")

// RedisCache wraps the redis client with JSON value encoding.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to redis and verifies the connection.
func NewRedisCache(cfg *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{client: client}, nil
}

// Set stores a JSON-encoded value with a TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, expiration).Err()
}

// GetDel fetches, decodes and removes a value in one atomic step,
// returning ErrMiss when absent. GETDEL serializes concurrent takers of
// the same key on the redis side, so at most one of them gets the
// value.
func (c *RedisCache) GetDel(ctx context.Context, key string, dest any) error {
	data, err := c.client.GetDel(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return err
	}
	return json.Unmarshal(data, dest)
}

// Close closes the connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// ChatSessionKeyPrefix namespaces parked stream sessions.
const ChatSessionKeyPrefix = "chatsess:"

// ChatSessionKey builds the redis key for a stream session.
func ChatSessionKey(id string) string {
	return ChatSessionKeyPrefix + id
}
