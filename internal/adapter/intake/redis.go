// Package intake delivers raw analysis reports to the pipeline from the
// sandbox's reporting queue.
package intake

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis report queue consumer.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	Key          string
	BlockTimeout time.Duration
}

// RedisConsumer pops analysis report payloads from a Redis list. The
// sandbox's reporting dispatcher pushes one JSON document per finished
// analysis.
type RedisConsumer struct {
	client       *redis.Client
	key          string
	blockTimeout time.Duration
}

// NewRedisConsumer creates a consumer for the configured list key.
func NewRedisConsumer(cfg RedisConfig) (*RedisConsumer, error) {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if cfg.Key == "" {
		return nil, fmt.Errorf("redis key is required")
	}
	if cfg.BlockTimeout == 0 {
		cfg.BlockTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisConsumer{
		client:       client,
		key:          cfg.Key,
		blockTimeout: cfg.BlockTimeout,
	}, nil
}

// Pop blocks for up to the configured timeout and returns one report
// payload, or nil when the queue stayed empty.
func (c *RedisConsumer) Pop(ctx context.Context) ([]byte, error) {
	res, err := c.client.BLPop(ctx, c.blockTimeout, c.key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(res) < 2 {
		return nil, nil
	}
	return []byte(res[1]), nil
}

// Close closes the consumer.
func (c *RedisConsumer) Close() error {
	return c.client.Close()
}
