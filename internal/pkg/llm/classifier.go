package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const defaultReadyTTL = 30 * time.Second

// Classifier scores comments for hate with a chat model. It is costly, so
// callers consult it only for ambiguous comments.
type Classifier struct {
	backend  Backend
	readyTTL time.Duration

	mu        sync.Mutex
	ready     bool
	checkedAt time.Time
	now       func() time.Time
}

// NewClassifier wraps a backend. readyTTL bounds how long a readiness
// answer is reused.
func NewClassifier(backend Backend, readyTTL time.Duration) *Classifier {
	if readyTTL <= 0 {
		readyTTL = defaultReadyTTL
	}
	return &Classifier{backend: backend, readyTTL: readyTTL, now: time.Now}
}

func (c *Classifier) Name() string {
	return "llm"
}

// Score asks the model and returns its hate score in [0,1].
func (c *Classifier) Score(ctx context.Context, text string) (float64, error) {
	content, err := c.backend.Complete(ctx, fmt.Sprintf(hatePrompt, text))
	if err != nil {
		return 0, err
	}
	v, err := ParseVerdict(content)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", err, content)
	}
	return v.Score, nil
}

// Ready reports whether the backend answered a ping recently.
func (c *Classifier) Ready(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.checkedAt.IsZero() && c.now().Sub(c.checkedAt) < c.readyTTL {
		return c.ready
	}
	c.ready = c.backend.Ping(ctx) == nil
	c.checkedAt = c.now()
	return c.ready
}
