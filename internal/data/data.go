package data

import (
	"context"
	"fmt"

	"nohate/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewStateRepo,
	NewScoreCache,
	NewScorers,
	NewConnectors,
	NewImporter,
	NewNotifier,
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"

	defaultNamespace = "nohate"
)

// Data holds the state backend and the clients behind it.
type Data struct {
	backend backend
	rdb     *redis.Client // nil unless the redis backend is used
	pool    *pgxpool.Pool // nil unless the postgres backend is used
}

// NewData opens the configured backend. Postgres schemas are migrated on start.
func NewData(c *conf.Data, logger log.Logger) (*Data, func(), error) {
	helper := log.NewHelper(logger)
	if c == nil {
		c = &conf.Data{}
	}
	ns := c.Namespace
	if ns == "" {
		ns = defaultNamespace
	}

	d := &Data{}
	switch c.Backend {
	case "", BackendMemory:
		d.backend = newMemoryBackend()
	case BackendRedis:
		if c.Redis == nil {
			return nil, nil, fmt.Errorf("data: redis backend needs data.redis")
		}
		client, err := newRedisClient(c.Redis, helper)
		if err != nil {
			return nil, nil, err
		}
		d.rdb = client
		d.backend = newRedisBackend(client, ns)
	case BackendPostgres:
		if c.Database == nil {
			return nil, nil, fmt.Errorf("data: postgres backend needs data.database")
		}
		pool, err := newPgxPool(c.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := RunMigrate(c.Database); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("data: migrate: %w", err)
		}
		d.pool = pool
		d.backend = newPostgresBackend(pool, ns)
	default:
		return nil, nil, fmt.Errorf("data: unknown backend %q", c.Backend)
	}

	if c.SealKey != "" {
		sealed, err := newSealedBackend(d.backend, c.SealKey)
		if err != nil {
			d.closeClients()
			return nil, nil, err
		}
		d.backend = sealed
	}
	helper.Infof("state backend %s (namespace %s, sealed %t)", backendName(c.Backend), ns, c.SealKey != "")

	cleanup := func() {
		helper.Info("closing data resources")
		if err := d.backend.close(); err != nil {
			helper.Errorf("close backend: %v", err)
		}
		d.closeClients()
	}
	return d, cleanup, nil
}

func newPgxPool(c *conf.Database) (*pgxpool.Pool, error) {
	cfg, err := newPgxPoolConfig(c)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func (d *Data) closeClients() {
	if d.rdb != nil {
		d.rdb.Close()
	}
	if d.pool != nil {
		d.pool.Close()
	}
}

func backendName(b string) string {
	if b == "" {
		return BackendMemory
	}
	return b
}
