package data

import (
	"sync"

	"nohate/internal/biz"
)

const subscriberBuffer = 16

// broadcaster fans committed-change events out to subscribers. A slow
// subscriber misses events instead of blocking writers.
type broadcaster struct {
	mu   sync.Mutex
	next int
	subs map[int]chan biz.StateEvent
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan biz.StateEvent)}
}

func (b *broadcaster) subscribe() (<-chan biz.StateEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan biz.StateEvent, subscriberBuffer)
	b.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

func (b *broadcaster) publish(ev biz.StateEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
