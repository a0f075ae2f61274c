package biz_test

import (
	"context"
	"errors"
	"sync"

	"nohate/internal/biz"
	"nohate/internal/data"

	"github.com/go-kratos/kratos/v2/log"
)

// tableScorer returns a fixed score per text and def otherwise.
type tableScorer struct {
	name   string
	scores map[string]float64
	def    float64
	err    error
	hook   func()

	mu    sync.Mutex
	calls int
}

func (s *tableScorer) Name() string { return s.name }

func (s *tableScorer) Score(_ context.Context, text string) (float64, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.hook != nil {
		s.hook()
	}
	if s.err != nil {
		return 0, s.err
	}
	if v, ok := s.scores[text]; ok {
		return v, nil
	}
	return s.def, nil
}

func (s *tableScorer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeEscalator struct {
	tableScorer
	ready bool
}

func (e *fakeEscalator) Ready(context.Context) bool { return e.ready }

type fakeSource struct {
	name  string
	texts []string
	err   error
	got   biz.SourceRequest
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Fetch(_ context.Context, req biz.SourceRequest) ([]string, error) {
	s.got = req
	return s.texts, s.err
}

type fakeImporter struct {
	posts map[string][]string
	limit int
}

func (im *fakeImporter) Import(_ context.Context, url string, limit int) ([]string, error) {
	im.limit = limit
	texts, ok := im.posts[url]
	if !ok {
		return nil, errors.New("post not found")
	}
	return texts, nil
}

type fakeNotifier struct {
	reports []biz.ScanReport
	err     error
}

func (n *fakeNotifier) ScanCompleted(_ context.Context, r *biz.ScanReport) error {
	n.reports = append(n.reports, *r)
	return n.err
}

func newRepo() biz.StateRepo {
	return data.NewMemoryStateRepo(log.DefaultLogger)
}

func lexiconOf(scores map[string]float64) *tableScorer {
	return &tableScorer{name: "lexicon", scores: scores}
}
