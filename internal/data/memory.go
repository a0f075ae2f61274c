package data

import (
	"context"
	"sync"
)

// memoryBackend keeps state in a map guarded by one lock.
type memoryBackend struct {
	mu     sync.RWMutex
	values map[string]string
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{values: make(map[string]string)}
}

type memoryReader struct {
	values map[string]string
}

func (r memoryReader) get(_ context.Context, key string) (string, bool, error) {
	v, ok := r.values[key]
	return v, ok, nil
}

func (b *memoryBackend) view(ctx context.Context, fn func(r kvReader) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return fn(memoryReader{values: b.values})
}

func (b *memoryBackend) update(ctx context.Context, fn func(r kvReader) (map[string]change, error)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	changes, err := fn(memoryReader{values: b.values})
	if err != nil {
		return err
	}
	for k, c := range changes {
		if c.del {
			delete(b.values, k)
			continue
		}
		b.values[k] = c.value
	}
	return nil
}

func (b *memoryBackend) close() error {
	return nil
}
