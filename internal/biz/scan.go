package biz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

// progressEvery is how many comments are classified between progress writes.
const progressEvery = 5

// TriggerMode says what started a run.
type TriggerMode int

const (
	TriggerPeriodic TriggerMode = iota
	TriggerManualBatch
	TriggerURLImport
	TriggerConnectorPoll
)

func (m TriggerMode) String() string {
	switch m {
	case TriggerPeriodic:
		return "periodic"
	case TriggerManualBatch:
		return "manual-batch"
	case TriggerURLImport:
		return "url-import"
	case TriggerConnectorPoll:
		return "connector-poll"
	default:
		return fmt.Sprintf("TriggerMode(%d)", int(m))
	}
}

func (m TriggerMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ParseTriggerMode is the inverse of TriggerMode.String.
func ParseTriggerMode(s string) (TriggerMode, bool) {
	for _, m := range []TriggerMode{TriggerPeriodic, TriggerManualBatch, TriggerURLImport, TriggerConnectorPoll} {
		if m.String() == s {
			return m, true
		}
	}
	return 0, false
}

// Trigger describes one run. Texts win over URL; with neither the active
// connector and the monitored URLs are polled.
type Trigger struct {
	Mode  TriggerMode
	Texts []string
	URL   string
}

// Source resolves which sourcing path the trigger takes.
func (t Trigger) Source() TriggerMode {
	switch {
	case len(t.Texts) > 0:
		return TriggerManualBatch
	case t.URL != "":
		return TriggerURLImport
	case t.Mode == TriggerPeriodic:
		return TriggerPeriodic
	default:
		return TriggerConnectorPoll
	}
}

// ScanReport summarizes a finished run.
type ScanReport struct {
	Mode        TriggerMode `json:"mode"`
	Total       int         `json:"total"`
	Processed   int         `json:"processed"`
	Flagged     int         `json:"flagged"`
	NewItems    int         `json:"new_items"`
	Escalations int         `json:"escalations"`
	Cancelled   bool        `json:"cancelled"`
	StartedAt   time.Time   `json:"started_at"`
	FinishedAt  time.Time   `json:"finished_at"`
}

type sourcedComment struct {
	text string
	url  string
}

// ScanUsecase runs scans: source, classify, dedup, persist, notify.
type ScanUsecase struct {
	repo       StateRepo
	engine     *DecisionEngine
	scorers    Scorers
	connectors Connectors
	importer   URLImporter
	notifier   Notifier
	log        *log.Helper

	mu sync.Mutex // one run at a time
}

// NewScanUsecase creates a ScanUsecase.
func NewScanUsecase(
	repo StateRepo,
	engine *DecisionEngine,
	scorers Scorers,
	connectors Connectors,
	importer URLImporter,
	notifier Notifier,
	logger log.Logger,
) *ScanUsecase {
	return &ScanUsecase{
		repo:       repo,
		engine:     engine,
		scorers:    scorers,
		connectors: connectors,
		importer:   importer,
		notifier:   notifier,
		log:        log.NewHelper(logger),
	}
}

// Run executes one scan. Only a failure to persist results is returned;
// sourcing and scoring failures degrade to fewer comments or zero scores.
// Cancelling ctx stops classification between comments and the partial
// result is still committed.
func (uc *ScanUsecase) Run(ctx context.Context, trig Trigger) (*ScanReport, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	mode := trig.Source()
	report := &ScanReport{Mode: mode, StartedAt: time.Now()}

	var (
		settings Settings
		lex      UserLexicon
		cred     Credential
	)
	var source CommentSource
	err := uc.repo.View(ctx, func(tx StateTx) error {
		var err error
		if settings, err = tx.Settings(); err != nil {
			return err
		}
		if lex, err = tx.Lexicon(); err != nil {
			return err
		}
		source = uc.connectors.Active(settings)
		if source != nil {
			cred, err = tx.Credential(source.Name())
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("scan: load state: %w", err)
	}

	var notes []string
	comments := uc.source(ctx, trig, mode, settings, source, cred, &notes)
	report.Total = len(comments)
	uc.setProgress(ctx, ScanProgress{Total: report.Total, Message: "Scanning"})

	scorers := uc.scorers.Select(settings)
	var flagged []sourcedComment
	for i, c := range comments {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}
		d := uc.engine.Decide(ctx, c.text, lex, settings.FlagThreshold, scorers)
		if d.Escalated {
			report.Escalations++
		}
		if d.Flagged {
			flagged = append(flagged, c)
		}
		report.Processed = i + 1
		if report.Processed%progressEvery == 0 && report.Processed < report.Total {
			uc.setProgress(ctx, ScanProgress{Total: report.Total, Done: report.Processed, Message: "Scanning"})
		}
	}
	report.Flagged = len(flagged)

	message := "Done"
	if report.Cancelled {
		message = "Cancelled"
		notes = append(notes, fmt.Sprintf("scan:cancelled after %d/%d", report.Processed, report.Total))
	}
	notes = append(notes, fmt.Sprintf("scan:%s total=%d flagged=%d", mode, report.Processed, report.Flagged))

	// results are committed even when the caller gave up
	persistCtx := context.WithoutCancel(ctx)
	err = uc.repo.Update(persistCtx, func(tx StateTx) error {
		n, err := uc.commit(tx, report, comments, flagged, message, notes)
		report.NewItems = n
		return err
	})
	if err != nil {
		uc.log.Errorf("scan %s: persist failed: %v", mode, err)
		return nil, fmt.Errorf("scan: persist: %w", err)
	}
	report.FinishedAt = time.Now()

	if uc.notifier != nil {
		if err := uc.notifier.ScanCompleted(persistCtx, report); err != nil {
			uc.log.Warnf("scan %s: notify failed: %v", mode, err)
		}
	}
	uc.log.Infof("scan %s done: total=%d processed=%d flagged=%d new=%d escalations=%d",
		mode, report.Total, report.Processed, report.Flagged, report.NewItems, report.Escalations)
	return report, nil
}

func (uc *ScanUsecase) commit(tx StateTx, report *ScanReport, comments, flagged []sourcedComment, message string, notes []string) (int, error) {
	existing, err := tx.Flagged()
	if err != nil {
		return 0, err
	}
	hidden, err := tx.Hidden()
	if err != nil {
		return 0, err
	}
	dedup := NewDeduplicator(existing, hidden)
	var (
		items []FlaggedItem
		texts []string
	)
	for _, c := range flagged {
		text := StoredText(c.text)
		if dedup.Contains(text) {
			continue
		}
		dedup.add(text)
		items = append(items, FlaggedItem{Text: text, SourceURL: StoredText(c.url)})
		if NormalizePhrase(text) != "" {
			texts = append(texts, text)
		}
	}
	if len(items) > 0 {
		if err := tx.AppendFlagged(items...); err != nil {
			return 0, err
		}
		if _, err := tx.EnqueueTraining(texts...); err != nil {
			return 0, err
		}
	}

	stat := ScanStat{
		TimestampMillis: nowMillis(),
		TotalComments:   report.Processed,
		FlaggedCount:    report.Flagged,
	}
	if err := tx.AppendScanHistory(stat); err != nil {
		return 0, err
	}
	if err := tx.SetLastScan(stat); err != nil {
		return 0, err
	}
	if err := tx.IncMetric(MetricTotalProcessed, int64(report.Processed)); err != nil {
		return 0, err
	}
	if report.Escalations > 0 {
		if err := tx.IncMetric(MetricLlmInvocations, int64(report.Escalations)); err != nil {
			return 0, err
		}
	}
	all := make([]string, 0, len(comments))
	for _, c := range comments {
		all = append(all, c.text)
	}
	if err := tx.SetLastComments(all); err != nil {
		return 0, err
	}
	if err := tx.SetProgress(ScanProgress{Total: report.Total, Done: report.Processed, Message: message}); err != nil {
		return 0, err
	}
	for _, line := range notes {
		if err := tx.AppendLog(line); err != nil {
			return 0, err
		}
	}
	return len(items), nil
}

func (uc *ScanUsecase) source(ctx context.Context, trig Trigger, mode TriggerMode, settings Settings, source CommentSource, cred Credential, notes *[]string) []sourcedComment {
	switch mode {
	case TriggerManualBatch:
		out := make([]sourcedComment, 0, len(trig.Texts))
		for _, t := range trig.Texts {
			out = append(out, sourcedComment{text: t})
		}
		*notes = append(*notes, fmt.Sprintf("scan:batch %d", len(out)))
		return out
	case TriggerURLImport:
		return uc.importURL(ctx, trig.URL, settings.MaxCommentsPerURL, notes)
	}

	var out []sourcedComment
	seen := make(map[string]struct{})
	add := func(text, url string) {
		if _, ok := seen[text]; ok {
			return
		}
		seen[text] = struct{}{}
		out = append(out, sourcedComment{text: text, url: url})
	}
	if source != nil {
		texts, err := source.Fetch(ctx, SourceRequest{Credential: cred, Limit: settings.MaxCommentsPerURL})
		if err != nil {
			uc.log.Warnf("source %s failed: %v", source.Name(), err)
			*notes = append(*notes, fmt.Sprintf("provider:%s error %v", source.Name(), err))
		} else {
			*notes = append(*notes, fmt.Sprintf("provider:%s %d", source.Name(), len(texts)))
		}
		for _, t := range texts {
			add(t, "")
		}
	}
	for _, u := range settings.MonitoredURLs {
		if ctx.Err() != nil {
			break
		}
		for _, c := range uc.importURL(ctx, u, settings.MaxCommentsPerURL, notes) {
			add(c.text, c.url)
		}
	}
	return out
}

func (uc *ScanUsecase) importURL(ctx context.Context, url string, limit int, notes *[]string) []sourcedComment {
	if uc.importer == nil {
		return nil
	}
	texts, err := uc.importer.Import(ctx, url, limit)
	if err != nil {
		uc.log.Warnf("import %s failed: %v", url, err)
		*notes = append(*notes, fmt.Sprintf("import:error %s %v", url, err))
		return nil
	}
	*notes = append(*notes, fmt.Sprintf("import:%s %d", url, len(texts)))
	out := make([]sourcedComment, 0, len(texts))
	for _, t := range texts {
		out = append(out, sourcedComment{text: t, url: url})
	}
	return out
}

func (uc *ScanUsecase) setProgress(ctx context.Context, p ScanProgress) {
	err := uc.repo.Update(context.WithoutCancel(ctx), func(tx StateTx) error {
		return tx.SetProgress(p)
	})
	if err != nil {
		uc.log.Warnf("progress update failed: %v", err)
	}
}

// Progress returns the progress of the current or latest run.
func (uc *ScanUsecase) Progress(ctx context.Context) (ScanProgress, error) {
	var p ScanProgress
	err := uc.repo.View(ctx, func(tx StateTx) error {
		var err error
		p, err = tx.Progress()
		return err
	})
	return p, err
}

// History returns completed runs, oldest first.
func (uc *ScanUsecase) History(ctx context.Context) ([]ScanStat, error) {
	var h []ScanStat
	err := uc.repo.View(ctx, func(tx StateTx) error {
		var err error
		h, err = tx.ScanHistory()
		return err
	})
	return h, err
}

// LastScan returns the snapshot of the latest run.
func (uc *ScanUsecase) LastScan(ctx context.Context) (ScanStat, error) {
	var s ScanStat
	err := uc.repo.View(ctx, func(tx StateTx) error {
		var err error
		s, err = tx.LastScan()
		return err
	})
	return s, err
}

// LastComments returns every comment seen by the latest run.
func (uc *ScanUsecase) LastComments(ctx context.Context) ([]string, error) {
	var c []string
	err := uc.repo.View(ctx, func(tx StateTx) error {
		var err error
		c, err = tx.LastComments()
		return err
	})
	return c, err
}

// Classify runs the decision pipeline on one text without persisting it.
func (uc *ScanUsecase) Classify(ctx context.Context, text string) (Decision, error) {
	var (
		settings Settings
		lex      UserLexicon
	)
	err := uc.repo.View(ctx, func(tx StateTx) error {
		var err error
		if settings, err = tx.Settings(); err != nil {
			return err
		}
		lex, err = tx.Lexicon()
		return err
	})
	if err != nil {
		return Decision{}, err
	}
	return uc.engine.Decide(ctx, text, lex, settings.FlagThreshold, uc.scorers.Select(settings)), nil
}
