// Package scheduler owns the fixed job table driving periodic work: reminder
// and overdue scans, digests, recurring generation, reports, backup and
// cleanup. Jobs are independent; a panic or error inside one job is caught at
// the job boundary and never stops the others or the next tick.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Logger is the minimal logging dependency.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Handler is one job body. The context carries the scheduler's base context
// and is cancelled on Stop.
type Handler func(ctx context.Context) error

// Entry is a registered job.
type Entry struct {
	Name string
	Spec string
}

// Scheduler wraps a timezone-aware cron runner with per-job supervision.
type Scheduler struct {
	mu      sync.Mutex
	c       *cron.Cron
	loc     *time.Location
	logger  Logger
	entries []Entry

	baseCtx context.Context
	cancel  context.CancelFunc
	started bool
}

// New creates a scheduler evaluating cron specs in the given IANA timezone.
func New(timezone string, logger Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load scheduler timezone %q: %w", timezone, err)
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Scheduler{
		c:      cron.New(cron.WithParser(parser), cron.WithLocation(loc)),
		loc:    loc,
		logger: logger,
	}, nil
}

// Location returns the timezone the job table runs in.
func (s *Scheduler) Location() *time.Location {
	return s.loc
}

// Register adds a job to the table. Must be called before Start.
func (s *Scheduler) Register(name, spec string, handler Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started, cannot register %q", name)
	}

	_, err := s.c.AddFunc(spec, func() {
		s.runSupervised(name, handler)
	})
	if err != nil {
		return fmt.Errorf("register job %q with spec %q: %w", name, spec, err)
	}

	s.entries = append(s.entries, Entry{Name: name, Spec: spec})
	return nil
}

// Start launches the cron runner. Jobs fire on their own goroutines.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.baseCtx, s.cancel = context.WithCancel(ctx)
	s.started = true
	s.c.Start()

	s.logger.Info("Scheduler started",
		"jobs", len(s.entries),
		"timezone", s.loc.String())
}

// Stop cancels running jobs and waits for in-flight ones to return, bounded
// by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false
	s.cancel()

	select {
	case <-s.c.Stop().Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop timed out: %w", ctx.Err())
	}
}

// Entries returns the registered job table, for the admin API.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Trigger runs a registered job immediately, outside its cron cadence. Used
// by the admin API; the job still runs under the usual supervision.
func (s *Scheduler) Trigger(name string, handler Handler) {
	go s.runSupervised(name, handler)
}

// runSupervised is the per-job error boundary: panics are recovered and
// errors logged, so one bad tick never takes the table down.
func (s *Scheduler) runSupervised(name string, handler Handler) {
	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Job panicked",
				"job", name,
				"panic", fmt.Sprintf("%v", r),
				"duration", time.Since(start))
		}
	}()

	if err := handler(ctx); err != nil {
		s.logger.Error("Job failed",
			"job", name,
			"error", err,
			"duration", time.Since(start))
		return
	}

	s.logger.Info("Job finished",
		"job", name,
		"duration", time.Since(start))
}
