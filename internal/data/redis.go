package data

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"nohate/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyVersion        = "version"
	redisMaxTxRetries = 8
)

// newRedisClient connects to Redis from configuration.
func newRedisClient(c *conf.Redis, helper *log.Helper) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     c.Addr,
		Network:  c.Network,
		Password: c.Password,
		DB:       c.DB,
	}
	if c.ReadTimeout != nil {
		opts.ReadTimeout = c.ReadTimeout.AsDuration()
	}
	if c.WriteTimeout != nil {
		opts.WriteTimeout = c.WriteTimeout.AsDuration()
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		helper.Errorf("failed to connect to Redis at %s: %v", c.Addr, err)
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	helper.Infof("connected to Redis at %s", c.Addr)
	return client, nil
}

// redisBackend stores each state key as a Redis string under a namespace.
// Updates are optimistic transactions on a version key and are retried when
// another writer commits first; the local lock keeps this process from
// conflicting with itself.
type redisBackend struct {
	client *redis.Client
	ns     string
	mu     sync.RWMutex

	watch func(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error
}

func newRedisBackend(client *redis.Client, namespace string) *redisBackend {
	return &redisBackend{client: client, ns: namespace, watch: client.Watch}
}

func (b *redisBackend) key(k string) string {
	return b.ns + ":" + k
}

type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

type redisReader struct {
	cmd redisGetter
	b   *redisBackend
}

func (r redisReader) get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.cmd.Get(ctx, r.b.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("data: redis get %s: %w", key, err)
	}
	return v, true, nil
}

func (b *redisBackend) view(ctx context.Context, fn func(r kvReader) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return fn(redisReader{cmd: b.client, b: b})
}

func (b *redisBackend) update(ctx context.Context, fn func(r kvReader) (map[string]change, error)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	txf := func(tx *redis.Tx) error {
		changes, err := fn(redisReader{cmd: tx, b: b})
		if err != nil {
			return err
		}
		if len(changes) == 0 {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for k, c := range changes {
				if c.del {
					pipe.Del(ctx, b.key(k))
					continue
				}
				pipe.Set(ctx, b.key(k), c.value, 0)
			}
			pipe.Incr(ctx, b.key(keyVersion))
			return nil
		})
		return err
	}

	for i := 0; i < redisMaxTxRetries; i++ {
		err := b.watch(ctx, txf, b.key(keyVersion))
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("data: redis update gave up after %d attempts: %w", redisMaxTxRetries, redis.TxFailedErr)
}

// close is a no-op; Data owns the client.
func (b *redisBackend) close() error {
	return nil
}
