package data

import (
	"context"
	"fmt"
	"strings"

	"nohate/internal/biz"
	"nohate/internal/conf"
	"nohate/internal/pkg/instagram"
	"nohate/internal/pkg/lexicon"
	"nohate/internal/pkg/llm"
	"nohate/internal/pkg/notify"
	"nohate/internal/pkg/quant"
	"nohate/internal/pkg/redis"

	"github.com/go-kratos/kratos/v2/log"
)

const (
	LLMProviderOllama = "ollama"
	LLMProviderVLLM   = "vllm"
)

// NewScorers builds the score providers from config. Remote providers are
// wrapped with the score cache when one is available.
func NewScorers(mc *conf.Moderation, cache redis.Cache, logger log.Logger) (biz.Scorers, func(), error) {
	helper := log.NewHelper(logger)
	if mc == nil {
		mc = &conf.Moderation{}
	}
	ttl := defaultScoreTTL
	if mc.ScoreCache != nil {
		if d := mc.ScoreCache.TTL.AsDuration(); d > 0 {
			ttl = d
		}
	}

	scorers := biz.Scorers{Lexicon: lexicon.NewScorer(nil)}
	var closers []func()

	if q := mc.Quantized; q != nil && q.Enabled {
		cfg := quant.DefaultConfig(q.Addr)
		if d := q.Timeout.AsDuration(); d > 0 {
			cfg.Timeout = d
		}
		client, err := quant.NewClient(cfg)
		if err != nil {
			return biz.Scorers{}, nil, err
		}
		helper.Infof("quantized model gRPC client for %s", cfg.Address)
		closers = append(closers, func() {
			helper.Info("closing quantized model gRPC connection")
			client.Close()
		})
		scorers.Quantized = client
		if cache != nil {
			scorers.Quantized = newCachedScorer(client, cache, ttl, logger)
		}
	} else {
		helper.Info("quantized model disabled, skipping gRPC client")
	}

	if l := mc.Llm; l != nil && l.Enabled {
		backends, err := newLLMBackends(l)
		if err != nil {
			for _, c := range closers {
				c()
			}
			return biz.Scorers{}, nil, err
		}
		classifier := llm.NewClassifier(llm.NewPool(backends, l.Replicas), l.ReadyTTL.AsDuration())
		helper.Infof("llm escalation via %s (%d endpoints)", l.Provider, len(backends))
		scorers.LLM = classifier
		if cache != nil {
			scorers.LLM = &cachedEscalator{
				cachedScorer: newCachedScorer(classifier, cache, ttl, logger),
				ready:        classifier,
			}
		}
	} else {
		helper.Info("llm escalation disabled")
	}

	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}
	return scorers, cleanup, nil
}

func newLLMBackends(l *conf.Moderation_Llm) ([]llm.Backend, error) {
	endpoints := l.Endpoints
	var backends []llm.Backend
	switch strings.ToLower(l.Provider) {
	case "", LLMProviderOllama:
		if len(endpoints) == 0 {
			endpoints = []string{llm.DefaultOllamaConfig().BaseURL}
		}
		for _, ep := range endpoints {
			cfg := llm.DefaultOllamaConfig()
			cfg.BaseURL = ep
			if l.Model != "" {
				cfg.Model = l.Model
			}
			if d := l.Timeout.AsDuration(); d > 0 {
				cfg.Timeout = d
			}
			backends = append(backends, llm.NewOllamaClient(cfg))
		}
	case LLMProviderVLLM:
		if len(endpoints) == 0 {
			endpoints = []string{llm.DefaultVLLMConfig().BaseURL}
		}
		for _, ep := range endpoints {
			cfg := llm.DefaultVLLMConfig()
			cfg.BaseURL = ep
			cfg.APIKey = l.APIKey
			if l.Model != "" {
				cfg.Model = l.Model
			}
			if d := l.Timeout.AsDuration(); d > 0 {
				cfg.Timeout = d
			}
			backends = append(backends, llm.NewVLLMClient(cfg))
		}
	default:
		return nil, fmt.Errorf("data: unknown llm provider %q", l.Provider)
	}
	return backends, nil
}

type graphSource struct {
	g *instagram.Graph
}

func (s graphSource) Name() string { return biz.ConnectorGraph }

func (s graphSource) Fetch(ctx context.Context, req biz.SourceRequest) ([]string, error) {
	return s.g.Fetch(ctx, req.Credential.OAuthToken, req.Limit)
}

type sessionSource struct {
	s *instagram.Session
}

func (s sessionSource) Name() string { return biz.ConnectorSession }

func (s sessionSource) Fetch(ctx context.Context, req biz.SourceRequest) ([]string, error) {
	return s.s.Fetch(ctx, req.Credential.SessionCookies, req.Limit)
}

type staticSource struct {
	s *instagram.Static
}

func (s staticSource) Name() string { return "static" }

func (s staticSource) Fetch(ctx context.Context, req biz.SourceRequest) ([]string, error) {
	return s.s.Fetch(ctx, req.Limit)
}

// NewConnectors builds the comment connectors. The session connector exists
// only when a feed URL is configured.
func NewConnectors(sc *conf.Sources) biz.Connectors {
	if sc == nil {
		sc = &conf.Sources{}
	}
	var c biz.Connectors

	gc := instagram.GraphConfig{}
	if g := sc.Graph; g != nil {
		gc = instagram.GraphConfig{BaseURL: g.BaseURL, MediaLimit: g.MediaLimit, Timeout: g.Timeout.AsDuration()}
	}
	c.Graph = graphSource{g: instagram.NewGraph(gc)}

	if s := sc.Session; s != nil && s.FeedURL != "" {
		c.Session = sessionSource{s: instagram.NewSession(instagram.SessionConfig{
			FeedURL: s.FeedURL,
			Path:    s.Path,
			Timeout: s.Timeout.AsDuration(),
		})}
	}

	var comments []string
	if sc.Static != nil {
		comments = sc.Static.Comments
	}
	c.Static = staticSource{s: instagram.NewStatic(comments)}
	return c
}

// NewImporter builds the public post importer.
func NewImporter(sc *conf.Sources) biz.URLImporter {
	cfg := instagram.ImporterConfig{}
	if sc != nil && sc.Importer != nil {
		cfg = instagram.ImporterConfig{
			UserAgent:      sc.Importer.UserAgent,
			ConnectTimeout: sc.Importer.ConnectTimeout.AsDuration(),
			Timeout:        sc.Importer.Timeout.AsDuration(),
		}
	}
	return instagram.NewImporter(cfg)
}

type notifier struct {
	log      *log.Helper
	telegram *notify.Telegram
}

// NewNotifier logs every finished run and, when configured, tells a
// Telegram chat about runs that found new items.
func NewNotifier(nc *conf.Notify, logger log.Logger) biz.Notifier {
	n := &notifier{log: log.NewHelper(logger)}
	if nc != nil && nc.Telegram != nil && nc.Telegram.Enabled {
		n.telegram = notify.NewTelegram(notify.TelegramConfig{
			Token:    nc.Telegram.Token,
			ChatID:   nc.Telegram.ChatID,
			Endpoint: nc.Telegram.Endpoint,
		})
	}
	return n
}

func (n *notifier) ScanCompleted(ctx context.Context, r *biz.ScanReport) error {
	n.log.Infof("scan %s finished: total=%d processed=%d flagged=%d new=%d escalations=%d cancelled=%t in %s",
		r.Mode, r.Total, r.Processed, r.Flagged, r.NewItems, r.Escalations, r.Cancelled, r.FinishedAt.Sub(r.StartedAt))
	if n.telegram == nil || r.NewItems == 0 {
		return nil
	}
	return n.telegram.Send(ctx, completionMessage(r))
}

func completionMessage(r *biz.ScanReport) string {
	return fmt.Sprintf("NoHate: %d new flagged comment(s) from a %s scan (%d checked).", r.NewItems, r.Mode, r.Processed)
}
