package llm

import (
	"context"
	"errors"
	"fmt"

	"nohate/internal/pkg/hash"
)

// Backend is one model server.
type Backend interface {
	Endpoint() string
	Complete(ctx context.Context, prompt string) (string, error)
	Ping(ctx context.Context) error
}

// Pool spreads prompts over several backends with consistent hashing, so
// the same comment keeps landing on the same server. A failing server is
// skipped in favour of the next one in configuration order.
type Pool struct {
	ring     *hash.Ring
	backends map[string]Backend
	order    []string
}

// NewPool creates a Pool. replicas <= 0 uses the ring default.
func NewPool(backends []Backend, replicas int) *Pool {
	p := &Pool{
		ring:     hash.NewRing(hash.WithReplicas(replicas)),
		backends: make(map[string]Backend, len(backends)),
	}
	for _, b := range backends {
		ep := b.Endpoint()
		if _, dup := p.backends[ep]; dup {
			continue
		}
		p.backends[ep] = b
		p.order = append(p.order, ep)
		p.ring.Add(ep)
	}
	return p
}

// Endpoint names the pool.
func (p *Pool) Endpoint() string {
	return fmt.Sprintf("pool(%d)", len(p.order))
}

// candidates returns the ring owner of key followed by the other backends.
func (p *Pool) candidates(key string) []Backend {
	out := make([]Backend, 0, len(p.order))
	first := ""
	if node, ok := p.ring.Owner(key); ok {
		first = node
		out = append(out, p.backends[first])
	}
	for _, ep := range p.order {
		if ep != first {
			out = append(out, p.backends[ep])
		}
	}
	return out
}

// Complete runs prompt on the owning backend, failing over in order.
func (p *Pool) Complete(ctx context.Context, prompt string) (string, error) {
	var errs []error
	for _, b := range p.candidates(prompt) {
		out, err := b.Complete(ctx, prompt)
		if err == nil {
			return out, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", b.Endpoint(), err))
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return "", errors.New("llm: pool has no backends")
	}
	return "", errors.Join(errs...)
}

// Ping succeeds when any backend answers.
func (p *Pool) Ping(ctx context.Context) error {
	var errs []error
	for _, ep := range p.order {
		err := p.backends[ep].Ping(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return errors.New("llm: pool has no backends")
	}
	return errors.Join(errs...)
}
