package data

import (
	"context"
	"errors"
	"time"

	"nohate/internal/biz"
	"nohate/internal/conf"
	"nohate/internal/pkg/hash"
	"nohate/internal/pkg/redis"

	"github.com/go-kratos/kratos/v2/log"
)

const defaultScoreTTL = 24 * time.Hour

// NewScoreCache returns the score cache, or nil when it is disabled or no
// Redis client is open.
func NewScoreCache(d *Data, mc *conf.Moderation) redis.Cache {
	if d.rdb == nil || mc == nil || mc.ScoreCache == nil || !mc.ScoreCache.Enabled {
		return nil
	}
	return redis.NewFromClient(d.rdb, "nohate:score:")
}

// cachedScorer memoises a provider's scores by text digest. Cache errors
// fall through to the provider.
type cachedScorer struct {
	next  biz.ScoreProvider
	cache redis.Cache
	ttl   time.Duration
	log   *log.Helper
}

func newCachedScorer(next biz.ScoreProvider, cache redis.Cache, ttl time.Duration, logger log.Logger) *cachedScorer {
	if ttl <= 0 {
		ttl = defaultScoreTTL
	}
	return &cachedScorer{next: next, cache: cache, ttl: ttl, log: log.NewHelper(logger)}
}

func (c *cachedScorer) Name() string {
	return c.next.Name()
}

func (c *cachedScorer) Score(ctx context.Context, text string) (float64, error) {
	key := c.next.Name() + ":" + hash.TextSha256(text)
	score, err := c.cache.GetFloat64(ctx, key)
	if err == nil {
		return score, nil
	}
	if !errors.Is(err, redis.Nil) {
		c.log.Warnf("score cache get %s: %v", key, err)
	}

	score, err = c.next.Score(ctx, text)
	if err != nil {
		return 0, err
	}
	if err := c.cache.SetFloat64(ctx, key, score, c.ttl); err != nil {
		c.log.Warnf("score cache set %s: %v", key, err)
	}
	return score, nil
}

type cachedEscalator struct {
	*cachedScorer
	ready biz.Escalator
}

func (c *cachedEscalator) Ready(ctx context.Context) bool {
	return c.ready.Ready(ctx)
}
