package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Redis struct {
	client *redis.Client
	prefix string
}

const Nil = redis.Nil

// NewFromClient shares an existing client. Keys are stored as prefix+key.
func NewFromClient(client *redis.Client, prefix string) Cache {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

func (r *Redis) SetFloat64(ctx context.Context, key string, value float64, exp time.Duration) error {
	return r.client.Set(ctx, r.key(key), value, exp).Err()
}

func (r *Redis) GetFloat64(ctx context.Context, key string) (float64, error) {
	return r.client.Get(ctx, r.key(key)).Float64()
}
