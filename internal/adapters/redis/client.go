package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"brandpulse/internal/adapters/config"
	"brandpulse/pkg/errors"
)

const (
	connectTimeout = 5 * time.Second
	lockPrefix     = "brandpulse:lock:"
)

// Client is the redis adapter. Values are stored as JSON.
type Client struct {
	rdb *redis.Client
}

// NewClient connects and pings. An unreachable server is ErrUnavailable.
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: connectTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Join(errors.ErrUnavailable, errors.Wrapf(err, "redis %s", cfg.Addr()))
	}
	return &Client{rdb: rdb}, nil
}

// Client exposes the go-redis client for components that script redis
// directly (the AI rate limiter).
func (c *Client) Client() *redis.Client { return c.rdb }

func (c *Client) Close() error { return c.rdb.Close() }

// Health pings the server
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Set stores value as JSON. A zero ttl keeps the key forever.
func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Join(errors.ErrInvalidInput, err)
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

// Get decodes the JSON at key into dest. A missing key is ErrNotFound.
func (c *Client) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return errors.Wrapf(errors.ErrNotFound, "redis key %s", key)
	case err != nil:
		return err
	}
	return json.Unmarshal(data, dest)
}

// Delete removes keys; missing keys are ignored
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// AcquireLock claims name for ttl. There is no release: a monitor run
// holds its brand until the lock expires, so replicas never analyze the
// same brand twice in one interval. The value records when it was taken.
func (c *Client) AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, lockPrefix+name, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}
