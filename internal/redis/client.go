package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tradelab/trading-dashboard/internal/config"
	"github.com/tradelab/trading-dashboard/internal/models"
)

// Cache TTLs for hot market data. Tickers churn fast, klines less so.
const (
	TickerTTL = 5 * time.Second
	KlinesTTL = 30 * time.Second
)

// Client wraps the Redis client with market-data cache operations
type Client struct {
	rdb *redis.Client
}

// New creates a new Redis client
func New(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks if Redis is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Ticker caching

// SetTicker caches a ticker payload
func (c *Client) SetTicker(ctx context.Context, t *models.Ticker) error {
	key := fmt.Sprintf("market:%s:ticker", t.Symbol)
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal ticker: %w", err)
	}
	return c.rdb.Set(ctx, key, data, TickerTTL).Err()
}

// GetTicker retrieves a cached ticker, redis.Nil when absent
func (c *Client) GetTicker(ctx context.Context, symbol string) (*models.Ticker, error) {
	key := fmt.Sprintf("market:%s:ticker", symbol)
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}

	var t models.Ticker
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ticker: %w", err)
	}
	return &t, nil
}

// Kline caching

// SetKlines caches a kline series for a symbol/interval/limit combination
func (c *Client) SetKlines(ctx context.Context, symbol, interval string, limit int, klines []models.Kline) error {
	key := klinesKey(symbol, interval, limit)
	data, err := json.Marshal(klines)
	if err != nil {
		return fmt.Errorf("failed to marshal klines: %w", err)
	}
	return c.rdb.Set(ctx, key, data, KlinesTTL).Err()
}

// GetKlines retrieves a cached kline series, redis.Nil when absent
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Kline, error) {
	data, err := c.rdb.Get(ctx, klinesKey(symbol, interval, limit)).Bytes()
	if err != nil {
		return nil, err
	}

	var klines []models.Kline
	if err := json.Unmarshal(data, &klines); err != nil {
		return nil, fmt.Errorf("failed to unmarshal klines: %w", err)
	}
	return klines, nil
}

func klinesKey(symbol, interval string, limit int) string {
	return fmt.Sprintf("market:%s:klines:%s:%d", symbol, interval, limit)
}

// Generic operations

// Set stores a value with optional TTL
func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Get retrieves a string value
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

// Delete removes a key
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

// IsCacheMiss reports whether err is a plain key-not-found
func IsCacheMiss(err error) bool {
	return err == redis.Nil
}
