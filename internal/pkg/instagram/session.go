package instagram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

type SessionConfig struct {
	FeedURL   string
	Path      string // gjson path selecting comment texts
	UserAgent string
	Timeout   time.Duration
}

// Session reads comments from a JSON feed using the stored session cookies.
type Session struct {
	feedURL   string
	path      string
	userAgent string
	client    *http.Client
}

func NewSession(cfg SessionConfig) *Session {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return &Session{
		feedURL:   cfg.FeedURL,
		path:      cfg.Path,
		userAgent: cfg.UserAgent,
		client:    newHTTPClient(0, cfg.Timeout),
	}
}

func (s *Session) Fetch(ctx context.Context, cookies string, limit int) ([]string, error) {
	if cookies == "" {
		return nil, ErrNoToken
	}
	if s.feedURL == "" || s.path == "" {
		return nil, fmt.Errorf("instagram: session feed is not configured")
	}
	h := http.Header{}
	h.Set("Cookie", cookies)
	h.Set("User-Agent", s.userAgent)
	h.Set("Accept", "application/json")
	body, err := get(ctx, s.client, s.feedURL, h)
	if err != nil {
		return nil, fmt.Errorf("session feed: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("session feed: invalid JSON")
	}
	var out []string
	for _, t := range gjson.GetBytes(body, s.path).Array() {
		out = appendTexts(out, limit, strings.TrimSpace(t.String()))
	}
	return out, nil
}
