package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const scanBatch = 100

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// Cache stores JSON values with per-key expiry.
type Cache struct {
	client     *redis.Client
	defaultTTL time.Duration
	timeout    time.Duration
	log        zerolog.Logger
}

// NewCache wraps client. Every call is bounded by timeout.
func NewCache(client *redis.Client, defaultTTL, timeout time.Duration, log zerolog.Logger) *Cache {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Cache{client: client, defaultTTL: defaultTTL, timeout: timeout, log: log}
}

// Get decodes the value stored at key into dest. An undecodable value is
// deleted and reported as an error, never as a hit.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	b, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(b, dest); err != nil {
		if delErr := c.client.Del(ctx, key).Err(); delErr != nil {
			c.log.Warn().Err(delErr).Str("key", key).Msg("failed to drop undecodable cache entry")
		}
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Set(ctx, key, b, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix using SCAN, so it
// never blocks the server the way KEYS would.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	iter := c.client.Scan(ctx, 0, globEscaper.Replace(prefix)+"*", scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	removed := 0
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("cache delete prefix %s: %w", prefix, err)
			}
			removed += len(batch)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan prefix %s: %w", prefix, err)
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("cache delete prefix %s: %w", prefix, err)
		}
		removed += len(batch)
	}

	c.log.Debug().Str("prefix", prefix).Int("removed", removed).Msg("cache prefix invalidated")
	return nil
}
