package instagram

import "context"

// DefaultComments is served by Static when nothing is configured.
var DefaultComments = []string{
	"Great post!",
	"This is awful",
	"I disagree",
	"Please be kind",
}

// Static serves a fixed list of comments.
type Static struct {
	comments []string
}

func NewStatic(comments []string) *Static {
	if len(comments) == 0 {
		comments = DefaultComments
	}
	return &Static{comments: append([]string(nil), comments...)}
}

func (s *Static) Fetch(_ context.Context, limit int) ([]string, error) {
	return appendTexts(nil, limit, s.comments...), nil
}
