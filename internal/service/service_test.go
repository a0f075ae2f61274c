package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"nohate/internal/biz"
	"nohate/internal/data"
	"nohate/internal/pkg/lexicon"

	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

type fakeScheduler struct {
	mu       sync.Mutex
	trigs    []biz.Trigger
	interval int
	err      error
}

func (f *fakeScheduler) Enqueue(trig biz.Trigger) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.trigs = append(f.trigs, trig)
	return []string{"job-1"}, nil
}

func (f *fakeScheduler) Reschedule(intervalMinutes int) {
	f.mu.Lock()
	f.interval = intervalMinutes
	f.mu.Unlock()
}

type fixture struct {
	ts    *httptest.Server
	repo  biz.StateRepo
	sched *fakeScheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := log.DefaultLogger
	repo := data.NewMemoryStateRepo(logger)
	sched := &fakeScheduler{}
	scan := biz.NewScanUsecase(repo, biz.NewDecisionEngine(logger),
		biz.Scorers{Lexicon: lexicon.NewScorer(nil)}, biz.Connectors{}, nil, nil, logger)

	srv := khttp.NewServer()
	RegisterModerationHTTPServer(srv, NewModerationService(biz.NewReviewUsecase(repo, logger), scan, sched, logger))
	RegisterAdminHTTPServer(srv, NewAdminService(
		biz.NewTrainingUsecase(repo, logger),
		biz.NewSettingsUsecase(repo, logger),
		biz.NewConsoleUsecase(repo, logger),
		sched, logger,
	))
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return &fixture{ts: ts, repo: repo, sched: sched}
}

func (f *fixture) seedFlagged(t *testing.T, texts ...string) {
	t.Helper()
	err := f.repo.Update(context.Background(), func(tx biz.StateTx) error {
		for _, text := range texts {
			if err := tx.AppendFlagged(biz.FlaggedItem{Text: text}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func (f *fixture) do(t *testing.T, method, path, body string, out any) int {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.ts.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode
}

type errorBody struct {
	Code   int    `json:"code"`
	Reason string `json:"reason"`
}

type itemPage struct {
	Items      []IndexedItem `json:"items"`
	Offset     int           `json:"offset"`
	TotalItems int64         `json:"total_items"`
	HasPrev    bool          `json:"has_prev"`
}

func TestListFlaggedPaginates(t *testing.T) {
	f := newFixture(t)
	f.seedFlagged(t, "a", "b", "c")

	var page itemPage
	if code := f.do(t, http.MethodGet, "/v1/flagged?page=2&page_size=2", "", &page); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if page.TotalItems != 3 || page.Offset != 2 || !page.HasPrev {
		t.Errorf("page = %+v", page)
	}
	if len(page.Items) != 1 || page.Items[0].Index != 2 || page.Items[0].Text != "c" {
		t.Errorf("items = %+v", page.Items)
	}

	var e errorBody
	if code := f.do(t, http.MethodGet, "/v1/flagged?page=x", "", &e); code != http.StatusBadRequest || e.Reason != "INVALID_PAGE" {
		t.Errorf("bad page: status = %d, reason = %q", code, e.Reason)
	}
}

func TestItemActions(t *testing.T) {
	f := newFixture(t)
	f.seedFlagged(t, "first hateful", "second hateful", "third hateful")

	var reply ItemReply
	if code := f.do(t, http.MethodPost, "/v1/flagged/1/hide", "", &reply); code != http.StatusOK {
		t.Fatalf("hide status = %d", code)
	}
	if reply.Item.Text != "second hateful" {
		t.Errorf("hidden item = %q", reply.Item.Text)
	}

	var hidden itemPage
	f.do(t, http.MethodGet, "/v1/hidden", "", &hidden)
	if len(hidden.Items) != 1 || hidden.Items[0].Text != "second hateful" {
		t.Fatalf("hidden = %+v", hidden.Items)
	}

	if code := f.do(t, http.MethodPost, "/v1/flagged/0/correct", "", &reply); code != http.StatusOK {
		t.Fatalf("correct status = %d", code)
	}
	var lex biz.UserLexicon
	f.do(t, http.MethodGet, "/v1/lexicon", "", &lex)
	if len(lex.Safe) != 1 || lex.Safe[0] != "first hateful" {
		t.Errorf("safe lexicon = %v", lex.Safe)
	}

	if code := f.do(t, http.MethodPost, "/v1/hidden/0/unhide", "", &reply); code != http.StatusOK {
		t.Fatalf("unhide status = %d", code)
	}
	var flagged itemPage
	f.do(t, http.MethodGet, "/v1/flagged", "", &flagged)
	if flagged.TotalItems != 2 {
		t.Errorf("flagged after unhide = %+v", flagged.Items)
	}

	if code := f.do(t, http.MethodDelete, "/v1/flagged/0", "", nil); code != http.StatusOK {
		t.Errorf("delete status = %d", code)
	}
	if code := f.do(t, http.MethodDelete, "/v1/flagged", "", nil); code != http.StatusOK {
		t.Errorf("clear status = %d", code)
	}
	f.do(t, http.MethodGet, "/v1/flagged", "", &flagged)
	if flagged.TotalItems != 0 || flagged.Items == nil {
		t.Errorf("flagged after clear = %+v", flagged)
	}

	var m map[string]int64
	f.do(t, http.MethodGet, "/v1/metrics", "", &m)
	if m["hidden"] != 1 || m["false_positive"] != 1 || m["deleted"] != 1 {
		t.Errorf("metrics = %v", m)
	}
}

func TestItemActionErrors(t *testing.T) {
	f := newFixture(t)
	f.seedFlagged(t, "only")

	tests := []struct {
		method string
		path   string
		code   int
		reason string
	}{
		{http.MethodPost, "/v1/flagged/5/hide", http.StatusNotFound, "INDEX_OUT_OF_RANGE"},
		{http.MethodPost, "/v1/flagged/-1/report", http.StatusBadRequest, "INVALID_INDEX"},
		{http.MethodDelete, "/v1/flagged/x", http.StatusBadRequest, "INVALID_INDEX"},
		{http.MethodPost, "/v1/hidden/0/unhide", http.StatusNotFound, "INDEX_OUT_OF_RANGE"},
	}
	for _, tt := range tests {
		var e errorBody
		code := f.do(t, tt.method, tt.path, "", &e)
		if code != tt.code || e.Reason != tt.reason {
			t.Errorf("%s %s = %d %q, want %d %q", tt.method, tt.path, code, e.Reason, tt.code, tt.reason)
		}
	}
}

func TestClassify(t *testing.T) {
	f := newFixture(t)

	var d biz.Decision
	if code := f.do(t, http.MethodPost, "/v1/classify", `{"text":"kill yourself"}`, &d); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if !d.Flagged || d.FinalScore != 1 {
		t.Errorf("decision = %+v", d)
	}

	var e errorBody
	if code := f.do(t, http.MethodPost, "/v1/classify", `{"text":"  "}`, &e); code != http.StatusBadRequest || e.Reason != "BLANK_TEXT" {
		t.Errorf("blank: %d %q", code, e.Reason)
	}
}

func TestStartScan(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		code   int
		mode   biz.TriggerMode
		reason string
	}{
		{"batch", `{"texts":["a"," ","b"]}`, http.StatusOK, biz.TriggerManualBatch, ""},
		{"blank batch", `{"texts":[" ",""]}`, http.StatusBadRequest, 0, "EMPTY_BATCH"},
		{"url", `{"url":" https://www.instagram.com/p/abc/ "}`, http.StatusOK, biz.TriggerURLImport, ""},
		{"poll", `{}`, http.StatusOK, biz.TriggerConnectorPoll, ""},
		{"periodic", `{"mode":"periodic"}`, http.StatusOK, biz.TriggerPeriodic, ""},
		{"unknown mode", `{"mode":"hourly"}`, http.StatusBadRequest, 0, "INVALID_MODE"},
		{"batch mode without texts", `{"mode":"manual-batch"}`, http.StatusBadRequest, 0, "INVALID_MODE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			var out struct {
				ScanReply
				errorBody
			}
			code := f.do(t, http.MethodPost, "/v1/scans", tt.body, &out)
			if code != tt.code {
				t.Fatalf("status = %d, want %d", code, tt.code)
			}
			if tt.code != http.StatusOK {
				if out.Reason != tt.reason {
					t.Errorf("reason = %q, want %q", out.Reason, tt.reason)
				}
				if len(f.sched.trigs) != 0 {
					t.Errorf("rejected request was queued")
				}
				return
			}
			if len(out.Jobs) != 1 || len(f.sched.trigs) != 1 {
				t.Fatalf("jobs = %v, queued = %d", out.Jobs, len(f.sched.trigs))
			}
			trig := f.sched.trigs[0]
			if trig.Source() != tt.mode {
				t.Errorf("mode = %v, want %v", trig.Source(), tt.mode)
			}
			if tt.mode == biz.TriggerManualBatch && len(trig.Texts) != 2 {
				t.Errorf("texts = %q", trig.Texts)
			}
			if tt.mode == biz.TriggerURLImport && trig.URL != "https://www.instagram.com/p/abc/" {
				t.Errorf("url = %q", trig.URL)
			}
		})
	}
}

func TestScanReads(t *testing.T) {
	f := newFixture(t)
	err := f.repo.Update(context.Background(), func(tx biz.StateTx) error {
		stat := biz.ScanStat{TimestampMillis: 42, TotalComments: 3, FlaggedCount: 1}
		if err := tx.AppendScanHistory(stat); err != nil {
			return err
		}
		if err := tx.SetLastScan(stat); err != nil {
			return err
		}
		if err := tx.SetLastComments([]string{"x", "y", "z"}); err != nil {
			return err
		}
		return tx.SetProgress(biz.ScanProgress{Total: 3, Done: 3, Message: "done"})
	})
	if err != nil {
		t.Fatal(err)
	}

	var p biz.ScanProgress
	f.do(t, http.MethodGet, "/v1/scans/progress", "", &p)
	if p.Done != 3 || p.Message != "done" {
		t.Errorf("progress = %+v", p)
	}
	var last biz.ScanStat
	f.do(t, http.MethodGet, "/v1/scans/last", "", &last)
	if last.TimestampMillis != 42 {
		t.Errorf("last = %+v", last)
	}
	var hist struct {
		Items []biz.ScanStat `json:"items"`
	}
	f.do(t, http.MethodGet, "/v1/scans/history", "", &hist)
	if len(hist.Items) != 1 || hist.Items[0].FlaggedCount != 1 {
		t.Errorf("history = %+v", hist.Items)
	}
	var comments struct {
		Items      []string `json:"items"`
		TotalItems int64    `json:"total_items"`
	}
	f.do(t, http.MethodGet, "/v1/scans/comments?page_size=2", "", &comments)
	if comments.TotalItems != 3 || len(comments.Items) != 2 {
		t.Errorf("comments = %+v", comments)
	}
}

func TestSettingsMergeAndReschedule(t *testing.T) {
	f := newFixture(t)

	var s biz.Settings
	if code := f.do(t, http.MethodPut, "/v1/settings", `{"interval_minutes":5,"use_llm":true}`, &s); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if s.IntervalMinutes != biz.MinIntervalMinutes || !s.UseLlm {
		t.Errorf("saved = %+v", s)
	}
	if s.FlagThreshold != biz.DefaultFlagThreshold {
		t.Errorf("omitted threshold changed to %v", s.FlagThreshold)
	}
	if f.sched.interval != biz.MinIntervalMinutes {
		t.Errorf("rescheduled to %d", f.sched.interval)
	}

	var got biz.Settings
	f.do(t, http.MethodGet, "/v1/settings", "", &got)
	if got.IntervalMinutes != biz.MinIntervalMinutes || !got.UseLlm {
		t.Errorf("stored = %+v", got)
	}
}

func TestCredentials(t *testing.T) {
	f := newFixture(t)

	var e errorBody
	if code := f.do(t, http.MethodPut, "/v1/credentials/twitter", `{"oauth_token":"t"}`, &e); code != http.StatusBadRequest || e.Reason != "UNKNOWN_PROVIDER" {
		t.Errorf("unknown provider: %d %q", code, e.Reason)
	}
	if code := f.do(t, http.MethodPut, "/v1/credentials/ig_graph", `{}`, &e); code != http.StatusBadRequest || e.Reason != "EMPTY_CREDENTIAL" {
		t.Errorf("empty credential: %d %q", code, e.Reason)
	}
	if code := f.do(t, http.MethodPut, "/v1/credentials/ig_graph", `{"oauth_token":"t"}`, nil); code != http.StatusOK {
		t.Fatalf("set: %d", code)
	}

	var cred biz.Credential
	_ = f.repo.View(context.Background(), func(tx biz.StateTx) error {
		var err error
		cred, err = tx.Credential(biz.ConnectorGraph)
		return err
	})
	if cred.OAuthToken != "t" {
		t.Errorf("stored credential = %+v", cred)
	}

	if code := f.do(t, http.MethodDelete, "/v1/credentials/ig_graph", "", nil); code != http.StatusOK {
		t.Fatalf("clear: %d", code)
	}
	_ = f.repo.View(context.Background(), func(tx biz.StateTx) error {
		var err error
		cred, err = tx.Credential(biz.ConnectorGraph)
		return err
	})
	if !cred.IsZero() {
		t.Errorf("credential after clear = %+v", cred)
	}
}

func TestTrainingAndLogs(t *testing.T) {
	f := newFixture(t)

	var e errorBody
	if code := f.do(t, http.MethodGet, "/v1/training/next", "", &e); code != http.StatusNotFound || e.Reason != "TRAINING_QUEUE_EMPTY" {
		t.Errorf("empty queue: %d %q", code, e.Reason)
	}

	err := f.repo.Update(context.Background(), func(tx biz.StateTx) error {
		_, err := tx.EnqueueTraining("maybe rude")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	var next TrainingReply
	f.do(t, http.MethodGet, "/v1/training/next", "", &next)
	if next.Text != "maybe rude" {
		t.Errorf("next = %q", next.Text)
	}
	if code := f.do(t, http.MethodPost, "/v1/training/answer", `{"verdict":"maybe"}`, &e); code != http.StatusBadRequest {
		t.Errorf("bad verdict: %d", code)
	}
	if code := f.do(t, http.MethodPost, "/v1/training/answer", `{"verdict":"HATE"}`, &next); code != http.StatusOK || next.Text != "maybe rude" {
		t.Errorf("answer: %d %q", code, next.Text)
	}

	if code := f.do(t, http.MethodPost, "/v1/lexicon/neutral", `{"phrase":"x"}`, &e); code != http.StatusBadRequest || e.Reason != "INVALID_KIND" {
		t.Errorf("bad kind: %d %q", code, e.Reason)
	}
	if code := f.do(t, http.MethodPost, "/v1/lexicon/safe", `{"phrase":"  "}`, &e); code != http.StatusBadRequest || e.Reason != "BLANK_PHRASE" {
		t.Errorf("blank phrase: %d %q", code, e.Reason)
	}
	if code := f.do(t, http.MethodPost, "/v1/lexicon/safe", `{"phrase":" Hello There "}`, nil); code != http.StatusOK {
		t.Errorf("teach: %d", code)
	}
	var lex biz.UserLexicon
	f.do(t, http.MethodGet, "/v1/lexicon", "", &lex)
	if len(lex.Hate) != 1 || lex.Hate[0] != "maybe rude" || len(lex.Safe) != 1 || lex.Safe[0] != "hello there" {
		t.Errorf("lexicon = %+v", lex)
	}

	var logs struct {
		TotalItems int64 `json:"total_items"`
	}
	f.do(t, http.MethodGet, "/v1/logs", "", &logs)
	if logs.TotalItems == 0 {
		t.Error("training left no log lines")
	}
	f.do(t, http.MethodDelete, "/v1/logs", "", nil)
	f.do(t, http.MethodGet, "/v1/logs", "", &logs)
	if logs.TotalItems != 0 {
		t.Errorf("logs after clear = %d", logs.TotalItems)
	}
}
