// Package instagram fetches comment texts from Instagram: public post pages,
// the Graph API and an authenticated JSON feed.
package instagram

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	DefaultUserAgent      = "Mozilla/5.0 (Android) NoHate/1.0"
	DefaultConnectTimeout = 15 * time.Second
	DefaultTimeout        = 30 * time.Second

	maxBodyBytes = 8 << 20
)

func newHTTPClient(connectTimeout, timeout time.Duration) *http.Client {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: connectTimeout,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// get performs a GET and returns the body of a 2xx response.
func get(ctx context.Context, client *http.Client, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return body, nil
}

// appendTexts adds non-blank texts up to limit. A limit <= 0 means no limit.
func appendTexts(out []string, limit int, texts ...string) []string {
	for _, t := range texts {
		if limit > 0 && len(out) >= limit {
			break
		}
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}
