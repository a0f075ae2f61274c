package biz

import (
	"context"
)

// SourceRequest carries what a connector may need for one fetch.
type SourceRequest struct {
	Credential Credential
	Limit      int
}

// CommentSource returns raw comment texts. Callers treat an error as an empty result.
type CommentSource interface {
	Name() string
	Fetch(ctx context.Context, req SourceRequest) ([]string, error)
}

// URLImporter fetches the public comments of a single post.
type URLImporter interface {
	Import(ctx context.Context, url string, limit int) ([]string, error)
}

// Connectors is the closed set of comment sources. Graph and Session are
// used only when their connector flag is enabled.
type Connectors struct {
	Graph   CommentSource
	Session CommentSource
	Static  CommentSource
}

// Active picks the connector for a poll: graph, then session, then static.
func (c Connectors) Active(s Settings) CommentSource {
	switch {
	case c.Graph != nil && s.ConnectorEnabled(ConnectorGraph):
		return c.Graph
	case c.Session != nil && s.ConnectorEnabled(ConnectorSession):
		return c.Session
	default:
		return c.Static
	}
}

// Notifier is told about every finished run.
type Notifier interface {
	ScanCompleted(ctx context.Context, report *ScanReport) error
}
