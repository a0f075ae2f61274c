package server

import (
	"context"
	"sync"
	"time"

	"nohate/internal/biz"
	"nohate/internal/conf"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/google/uuid"
)

const (
	defaultBatchSize = 50
	defaultQueueSize = 64
)

// ErrQueueFull is returned when the job queue cannot take a request.
var ErrQueueFull = errors.New(429, "SCAN_QUEUE_FULL", "scan queue is full")

var _ transport.Server = (*Scheduler)(nil)

type job struct {
	id   string
	trig biz.Trigger
}

// Scheduler runs every scan on one worker goroutine: the periodic poll and
// queued one-shot jobs in FIFO order, so runs never overlap.
type Scheduler struct {
	scan       *biz.ScanUsecase
	settings   *biz.SettingsUsecase
	log        *log.Helper
	batchSize  int
	runOnStart bool
	unit       time.Duration // length of one interval minute

	queueMu    sync.Mutex
	jobs       chan job
	reschedule chan int

	mu      sync.Mutex
	started bool
	stop    context.CancelFunc
	current context.CancelFunc
	done    chan struct{}
}

// NewScheduler creates a Scheduler.
func NewScheduler(c *conf.Scan, scan *biz.ScanUsecase, settings *biz.SettingsUsecase, logger log.Logger) *Scheduler {
	batch, queue, runOnStart := defaultBatchSize, defaultQueueSize, false
	if c != nil {
		if c.BatchSize > 0 {
			batch = c.BatchSize
		}
		if c.QueueSize > 0 {
			queue = c.QueueSize
		}
		runOnStart = c.RunOnStart
	}
	return &Scheduler{
		scan:       scan,
		settings:   settings,
		log:        log.NewHelper(log.With(logger, "module", "server/scheduler")),
		batchSize:  batch,
		runOnStart: runOnStart,
		unit:       time.Minute,
		jobs:       make(chan job, queue),
		reschedule: make(chan int, 1),
		done:       make(chan struct{}),
	}
}

// Enqueue queues trig as one-shot jobs. Manual batches are split into
// jobs of at most the configured batch size. Either every job is queued
// or none is.
func (s *Scheduler) Enqueue(trig biz.Trigger) ([]string, error) {
	parts := s.split(trig)

	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	if cap(s.jobs)-len(s.jobs) < len(parts) {
		return nil, ErrQueueFull
	}
	ids := make([]string, len(parts))
	for i, t := range parts {
		ids[i] = uuid.NewString()
		s.jobs <- job{id: ids[i], trig: t}
	}
	return ids, nil
}

func (s *Scheduler) split(trig biz.Trigger) []biz.Trigger {
	if trig.Source() != biz.TriggerManualBatch || len(trig.Texts) <= s.batchSize {
		return []biz.Trigger{trig}
	}
	var parts []biz.Trigger
	for start := 0; start < len(trig.Texts); start += s.batchSize {
		end := min(start+s.batchSize, len(trig.Texts))
		parts = append(parts, biz.Trigger{Mode: trig.Mode, Texts: trig.Texts[start:end]})
	}
	return parts
}

// Reschedule changes the periodic interval. The latest value wins when
// called faster than the worker picks it up.
func (s *Scheduler) Reschedule(intervalMinutes int) {
	for {
		select {
		case s.reschedule <- intervalMinutes:
			return
		default:
		}
		select {
		case <-s.reschedule:
		default:
		}
	}
}

// Start runs the worker loop until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.started = true
	s.stop = cancel
	s.mu.Unlock()
	defer close(s.done)
	defer cancel()

	minutes := biz.DefaultIntervalMinutes
	if settings, err := s.settings.Get(ctx); err != nil {
		s.log.Warnf("reading settings, using default interval: %v", err)
	} else {
		minutes = settings.IntervalMinutes
	}
	interval := s.interval(minutes)
	s.log.Infof("scheduler started: every %dm", minutes)

	if s.runOnStart {
		s.run(ctx, job{id: uuid.NewString(), trig: biz.Trigger{Mode: biz.TriggerPeriodic}})
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-s.reschedule:
			next := s.interval(m)
			if next == interval {
				continue
			}
			interval = next
			resetTimer(timer, interval)
			s.log.Infof("scheduler rescheduled: every %dm", m)
		case j := <-s.jobs:
			s.run(ctx, j)
		case <-timer.C:
			s.run(ctx, job{id: uuid.NewString(), trig: biz.Trigger{Mode: biz.TriggerPeriodic}})
			timer.Reset(interval)
		}
	}
}

// Stop cancels the running job and waits for the worker to exit.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.stop()
	if s.current != nil {
		s.current()
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run(ctx context.Context, j job) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.current = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.current = nil
		s.mu.Unlock()
		cancel()
	}()

	s.log.Debugf("job %s: %s scan started", j.id, j.trig.Source())
	report, err := s.scan.Run(ctx, j.trig)
	if err != nil {
		s.log.Errorf("job %s: %s scan failed: %v", j.id, j.trig.Source(), err)
		return
	}
	s.log.Infof("job %s: %s scan done: %d processed, %d flagged, %d new",
		j.id, report.Mode, report.Processed, report.Flagged, report.NewItems)
}

func (s *Scheduler) interval(minutes int) time.Duration {
	m := min(max(minutes, biz.MinIntervalMinutes), biz.MaxIntervalMinutes)
	return time.Duration(m) * s.unit
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
