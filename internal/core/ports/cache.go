package ports

import (
	"context"
	"time"
)

// Cache is a key/value store with per-entry expiry. Values are JSON encoded,
// so dest receives an equal value on a hit.
type Cache interface {
	// Get reports hit=false with a nil error on a miss.
	Get(ctx context.Context, key string, dest any) (bool, error)
	// Set stores value under key for ttl; ttl <= 0 selects the backend default.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Delete is idempotent.
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}
