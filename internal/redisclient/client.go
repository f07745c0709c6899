package redisclient

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const walletCacheTTL = 5 * time.Minute

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and verifies connectivity.
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// PublishChange publishes a change-event payload to a scoped feed channel.
func (c *Client) PublishChange(ctx context.Context, channel string, payload []byte) error {
	if err := c.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s failed: %w", channel, err)
	}
	return nil
}

// SubscribeChange opens a pub/sub subscription on a scoped feed channel.
// The caller owns the returned handle and must close it.
func (c *Client) SubscribeChange(ctx context.Context, channel string) *redis.PubSub {
	return c.rdb.Subscribe(ctx, channel)
}

// CacheWalletBalance stores the authoritative wallet balance for a user.
// The cache is replace-only: the engine never increments or decrements it.
func (c *Client) CacheWalletBalance(ctx context.Context, userID string, balance int64) error {
	key := fmt.Sprintf("wallet:%s", userID)
	return c.rdb.Set(ctx, key, balance, walletCacheTTL).Err()
}

// CachedWalletBalance returns the cached balance, or ok=false on a miss.
func (c *Client) CachedWalletBalance(ctx context.Context, userID string) (int64, bool, error) {
	key := fmt.Sprintf("wallet:%s", userID)
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	balance, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt wallet cache entry: %w", err)
	}
	return balance, true, nil
}

// InvalidateWalletBalance drops the cached balance for a user.
func (c *Client) InvalidateWalletBalance(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("wallet:%s", userID)).Err()
}
