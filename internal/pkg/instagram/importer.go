package instagram

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/net/html"
)

const (
	DefaultBaseURL    = "https://www.instagram.com"
	DefaultImportSize = 200

	postCommentsPath = "graphql.shortcode_media.edge_media_to_parent_comment.edges.#.node.text"
)

var (
	textField = regexp.MustCompile(`"text":"((?:[^"\\]|\\.)*)"`)
	shortcode = regexp.MustCompile(`/(?:p|reel)/([A-Za-z0-9_-]+)/?`)
)

// ImporterConfig configures the public post importer.
type ImporterConfig struct {
	BaseURL        string
	UserAgent      string
	ConnectTimeout time.Duration
	Timeout        time.Duration
}

// Importer reads the comments embedded in a public post.
type Importer struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewImporter(cfg ImporterConfig) *Importer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return &Importer{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		client:    newHTTPClient(cfg.ConnectTimeout, cfg.Timeout),
	}
}

// Import returns up to limit comment texts from the post at postURL. The page
// HTML is tried first; when it yields nothing the post's JSON endpoint is
// queried by shortcode.
func (im *Importer) Import(ctx context.Context, postURL string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultImportSize
	}
	postURL = strings.TrimSpace(postURL)

	var pageErr error
	page, err := get(ctx, im.client, postURL, im.header("text/html,application/json"))
	if err != nil {
		pageErr = err
	} else if texts := ExtractHTML(page, limit); len(texts) > 0 {
		return texts, nil
	}

	code := Shortcode(postURL)
	if code == "" {
		if pageErr != nil {
			return nil, pageErr
		}
		return nil, nil
	}
	jsonURL := fmt.Sprintf("%s/p/%s/?__a=1&__d=dis", im.baseURL, code)
	body, err := get(ctx, im.client, jsonURL, im.header("application/json"))
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", code, err)
	}
	return ExtractPostJSON(body, limit), nil
}

func (im *Importer) header(accept string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", im.userAgent)
	h.Set("Accept", accept)
	return h
}

// Shortcode returns the post code of a /p/ or /reel/ URL.
func Shortcode(postURL string) string {
	m := shortcode.FindStringSubmatch(postURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// ExtractHTML scans the page's script blobs for "text":"..." fields.
func ExtractHTML(page []byte, limit int) []string {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil
	}
	var out []string
	var f func(*html.Node)
	f = func(n *html.Node) {
		if limit > 0 && len(out) >= limit {
			return
		}
		if n.Type == html.ElementNode && n.Data == "script" {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					out = appendTexts(out, limit, scriptTexts(c.Data)...)
				}
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(doc)
	return out
}

func scriptTexts(script string) []string {
	var texts []string
	for _, m := range textField.FindAllStringSubmatch(script, -1) {
		s := gjson.Parse(`"` + m[1] + `"`).String()
		texts = append(texts, strings.TrimSpace(s))
	}
	return texts
}

// ExtractPostJSON reads comment texts from the post JSON document.
func ExtractPostJSON(body []byte, limit int) []string {
	var out []string
	for _, r := range gjson.GetBytes(body, postCommentsPath).Array() {
		out = appendTexts(out, limit, strings.TrimSpace(r.String()))
	}
	return out
}
