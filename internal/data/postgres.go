package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nohate/internal/conf"
	"nohate/internal/pkg/hash"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	selectEntrySQL = `SELECT value FROM state_entries WHERE namespace = $1 AND key = $2`
	upsertEntrySQL = `INSERT INTO state_entries (namespace, key, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	deleteEntrySQL = `DELETE FROM state_entries WHERE namespace = $1 AND key = $2`
	lockSQL        = `SELECT pg_advisory_xact_lock($1)`
)

// postgresBackend keeps one row per state key. Writers of a namespace are
// serialized by a transaction-scoped advisory lock.
type postgresBackend struct {
	pool   *pgxpool.Pool
	ns     string
	lockID int64
}

func newPostgresBackend(pool *pgxpool.Pool, namespace string) *postgresBackend {
	return &postgresBackend{
		pool:   pool,
		ns:     namespace,
		lockID: int64(hash.Fingerprint("nohate:" + namespace)),
	}
}

// newPgxPoolConfig creates a pgxpool.Config from conf.Database
func newPgxPoolConfig(c *conf.Database) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(c.Source)
	if err != nil {
		return nil, err
	}
	pool := c.Pool
	if pool == nil {
		return cfg, nil
	}
	if pool.MaxOpenConns > 0 {
		cfg.MaxConns = pool.MaxOpenConns
	}
	if pool.MinIdleConns > 0 {
		cfg.MinConns = pool.MinIdleConns
	}
	if pool.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = time.Duration(pool.MaxConnLifetime) * time.Minute
	}
	if pool.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = time.Duration(pool.MaxConnIdleTime) * time.Minute
	}
	return cfg, nil
}

type pgReader struct {
	tx pgx.Tx
	ns string
}

func (r pgReader) get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := r.tx.QueryRow(ctx, selectEntrySQL, r.ns, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("data: select %s: %w", key, err)
	}
	return v, true, nil
}

func (b *postgresBackend) view(ctx context.Context, fn func(r kvReader) error) error {
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	return pgx.BeginTxFunc(ctx, b.pool, opts, func(tx pgx.Tx) error {
		return fn(pgReader{tx: tx, ns: b.ns})
	})
}

func (b *postgresBackend) update(ctx context.Context, fn func(r kvReader) (map[string]change, error)) error {
	return pgx.BeginTxFunc(ctx, b.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, lockSQL, b.lockID); err != nil {
			return fmt.Errorf("data: advisory lock: %w", err)
		}
		changes, err := fn(pgReader{tx: tx, ns: b.ns})
		if err != nil {
			return err
		}
		if len(changes) == 0 {
			return nil
		}
		batch := &pgx.Batch{}
		for k, c := range changes {
			if c.del {
				batch.Queue(deleteEntrySQL, b.ns, k)
				continue
			}
			batch.Queue(upsertEntrySQL, b.ns, k, c.value)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("data: write batch: %w", err)
		}
		return nil
	})
}

func (b *postgresBackend) close() error {
	return nil
}
