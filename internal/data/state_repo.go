package data

import (
	"context"
	"time"

	"nohate/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
)

type stateRepo struct {
	b      backend
	events *broadcaster
	log    *log.Helper
}

// NewStateRepo creates a StateRepo over the configured backend.
func NewStateRepo(data *Data, logger log.Logger) biz.StateRepo {
	return newStateRepo(data.backend, logger)
}

// NewMemoryStateRepo creates a StateRepo kept in process memory.
func NewMemoryStateRepo(logger log.Logger) biz.StateRepo {
	return newStateRepo(newMemoryBackend(), logger)
}

func newStateRepo(b backend, logger log.Logger) *stateRepo {
	return &stateRepo{
		b:      b,
		events: newBroadcaster(),
		log:    log.NewHelper(logger),
	}
}

func (r *stateRepo) View(ctx context.Context, fn func(tx biz.StateTx) error) error {
	return r.b.view(ctx, func(kv kvReader) error {
		return fn(newStateTx(ctx, kv, true))
	})
}

func (r *stateRepo) Update(ctx context.Context, fn func(tx biz.StateTx) error) error {
	var keys []string
	err := r.b.update(ctx, func(kv kvReader) (map[string]change, error) {
		tx := newStateTx(ctx, kv, false)
		if err := fn(tx); err != nil {
			return nil, err
		}
		keys = tx.keys()
		return tx.staged, nil
	})
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		r.events.publish(biz.StateEvent{Keys: keys, At: nowMillis()})
	}
	return nil
}

func (r *stateRepo) Subscribe() (<-chan biz.StateEvent, func()) {
	return r.events.subscribe()
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
