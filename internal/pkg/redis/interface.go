package redis

import (
	"context"
	"time"
)

// Cache is the small key/value surface used for memoising scores.
// GetFloat64 returns Nil when the key does not exist.
type Cache interface {
	SetFloat64(ctx context.Context, key string, value float64, exp time.Duration) error
	GetFloat64(ctx context.Context, key string) (float64, error)
}
