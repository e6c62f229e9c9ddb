// Package memory provides an in-process cache for single-instance deployments
// and local development.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/viccon/sturdyc"
)

const (
	defaultCapacity = 10000
	defaultShards   = 64
	defaultEvictPct = 10
	defaultMaxTTL   = 24 * time.Hour
)

// Config holds the sturdyc sizing parameters.
type Config struct {
	Capacity   int
	NumShards  int
	DefaultTTL time.Duration
	// MaxTTL bounds every entry; longer per-call TTLs are clamped to it.
	MaxTTL time.Duration
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

// Cache stores JSON values in a sharded sturdyc client. Each entry carries
// its own deadline so per-call TTLs shorter than MaxTTL are honoured.
type Cache struct {
	client     *sturdyc.Client[entry]
	defaultTTL time.Duration
	maxTTL     time.Duration
	now        func() time.Time
}

func NewCache(cfg Config) *Cache {
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultCapacity
	}
	if cfg.NumShards <= 0 {
		cfg.NumShards = defaultShards
	}
	if cfg.MaxTTL <= 0 {
		cfg.MaxTTL = defaultMaxTTL
	}
	if cfg.DefaultTTL <= 0 || cfg.DefaultTTL > cfg.MaxTTL {
		cfg.DefaultTTL = cfg.MaxTTL
	}

	return &Cache{
		client:     sturdyc.New[entry](cfg.Capacity, cfg.NumShards, cfg.MaxTTL, defaultEvictPct),
		defaultTTL: cfg.DefaultTTL,
		maxTTL:     cfg.MaxTTL,
		now:        time.Now,
	}
}

func (c *Cache) Get(_ context.Context, key string, dest any) (bool, error) {
	e, ok := c.client.Get(key)
	if !ok {
		return false, nil
	}
	if !c.now().Before(e.expiresAt) {
		c.client.Delete(key)
		return false, nil
	}
	if err := json.Unmarshal(e.data, dest); err != nil {
		c.client.Delete(key)
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if ttl > c.maxTTL {
		ttl = c.maxTTL
	}
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	c.client.Set(key, entry{data: b, expiresAt: c.now().Add(ttl)})
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.client.Delete(key)
	return nil
}

func (c *Cache) DeletePrefix(_ context.Context, prefix string) error {
	for _, key := range c.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			c.client.Delete(key)
		}
	}
	return nil
}
