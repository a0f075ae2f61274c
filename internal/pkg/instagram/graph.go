package instagram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultGraphURL   = "https://graph.facebook.com/v20.0"
	DefaultMediaLimit = 10
)

// ErrNoToken is returned when a connector has no credential to use.
var ErrNoToken = errors.New("instagram: no credential stored")

type GraphConfig struct {
	BaseURL    string
	MediaLimit int
	Timeout    time.Duration
}

// Graph lists comments on the account's recent media through the Graph API.
type Graph struct {
	baseURL    string
	mediaLimit int
	client     *http.Client
}

func NewGraph(cfg GraphConfig) *Graph {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGraphURL
	}
	if cfg.MediaLimit <= 0 {
		cfg.MediaLimit = DefaultMediaLimit
	}
	return &Graph{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		mediaLimit: cfg.MediaLimit,
		client:     newHTTPClient(0, cfg.Timeout),
	}
}

// Fetch returns up to limit comment texts, newest media first.
func (g *Graph) Fetch(ctx context.Context, token string, limit int) ([]string, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	body, err := get(ctx, g.client, g.url("/me/media", token, url.Values{
		"fields": {"id"},
		"limit":  {strconv.Itoa(g.mediaLimit)},
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("graph media: %w", err)
	}

	var out []string
	for _, id := range gjson.GetBytes(body, "data.#.id").Array() {
		if limit > 0 && len(out) >= limit {
			break
		}
		body, err := get(ctx, g.client, g.url("/"+url.PathEscape(id.String())+"/comments", token, url.Values{
			"fields": {"text"},
		}), nil)
		if err != nil {
			return out, fmt.Errorf("graph comments %s: %w", id.String(), err)
		}
		for _, t := range gjson.GetBytes(body, "data.#.text").Array() {
			out = appendTexts(out, limit, strings.TrimSpace(t.String()))
		}
	}
	return out, nil
}

func (g *Graph) url(path, token string, q url.Values) string {
	q.Set("access_token", token)
	return g.baseURL + path + "?" + q.Encode()
}
