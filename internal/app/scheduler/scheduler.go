// Package scheduler triggers the reminder evaluation cycle once per day at a fixed
// wall-clock time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/cabinet/internal/cache"
	"github.com/charlesng35/cabinet/internal/reminders"
	"github.com/charlesng35/cabinet/pkg/logger"
	"github.com/charlesng35/cabinet/pkg/metrics"
)

const (
	defaultLockTTL = 23 * time.Hour
	lockKeyPrefix  = "reminders:cycle:"
)

var (
	// ErrCycleAlreadyRan is returned when the day's cycle lock is held by an earlier run or another replica.
	ErrCycleAlreadyRan = errors.New("scheduler: cycle already ran for this day")
	// ErrCycleInProgress is returned when a cycle is still running in this process.
	ErrCycleInProgress = errors.New("scheduler: cycle in progress")
)

// CycleRunner executes one evaluation cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context, now time.Time) (reminders.CycleReport, error)
}

// Status exposes the scheduler state for observability.
type Status struct {
	Enabled       bool                   `json:"enabled"`
	Timezone      string                 `json:"timezone"`
	TriggerTime   string                 `json:"trigger_time"`
	Running       bool                   `json:"running"`
	NextRun       *time.Time             `json:"next_run,omitempty"`
	LastRunAt     *time.Time             `json:"last_run_at,omitempty"`
	LastSuccessAt *time.Time             `json:"last_success_at,omitempty"`
	LastError     string                 `json:"last_error,omitempty"`
	LastReport    *reminders.CycleReport `json:"last_report,omitempty"`
}

// Option customises the Scheduler.
type Option func(*Scheduler)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithNow overrides the clock handed to the evaluators.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocker guards each day's cycle with a shared lock.
func WithLocker(locker cache.Locker) Option {
	return func(s *Scheduler) {
		s.locker = locker
	}
}

// WithLockTTL overrides how long a day's cycle lock is held.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *Scheduler) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithRunOnStart triggers a cycle from Start when the process comes up after the
// trigger time and the day's cycle has not run yet.
func WithRunOnStart(enabled bool) Option {
	return func(s *Scheduler) {
		s.runOnStart = enabled
	}
}

// Scheduler runs the reminder cycle daily at hour:minute in loc.
type Scheduler struct {
	runner     CycleRunner
	locker     cache.Locker
	cron       *cron.Cron
	now        func() time.Time
	log        *zap.Logger
	loc        *time.Location
	hour       int
	minute     int
	lockTTL    time.Duration
	runOnStart bool

	entryID cron.EntryID
	started bool
	wg      sync.WaitGroup
	running sync.Mutex
	// inFlight mirrors running for readers that must never contend for it.
	inFlight atomic.Bool

	mu          sync.RWMutex
	lastRunAt   time.Time
	lastSuccess time.Time
	lastErr     error
	lastReport  *reminders.CycleReport
}

// New constructs a Scheduler firing at hour:minute in loc.
func New(runner CycleRunner, loc *time.Location, hour, minute int, opts ...Option) (*Scheduler, error) {
	if runner == nil {
		return nil, errors.New("scheduler: cycle runner is required")
	}
	if loc == nil {
		return nil, errors.New("scheduler: location is required")
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return nil, fmt.Errorf("scheduler: invalid trigger time %02d:%02d", hour, minute)
	}

	s := &Scheduler{
		runner:  runner,
		loc:     loc,
		hour:    hour,
		minute:  minute,
		now:     time.Now,
		lockTTL: defaultLockTTL,
		log:     logger.WithModule("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.cron == nil {
		s.cron = cron.New(cron.WithLocation(loc), cron.WithLogger(cron.DiscardLogger))
	}
	return s, nil
}

// Spec returns the cron expression of the daily trigger.
func (s *Scheduler) Spec() string {
	return fmt.Sprintf("%d %d * * *", s.minute, s.hour)
}

// Start registers the daily job and launches the cron loop.
func (s *Scheduler) Start() error {
	id, err := s.cron.AddFunc(s.Spec(), func() {
		s.trigger(context.Background())
	})
	if err != nil {
		return fmt.Errorf("scheduler: register cycle: %w", err)
	}
	s.mu.Lock()
	s.entryID = id
	s.started = true
	s.mu.Unlock()
	s.cron.Start()

	s.log.Info("reminder scheduler started",
		zap.String("timezone", s.loc.String()),
		zap.String("trigger_time", s.triggerTime()),
	)

	if s.runOnStart && s.pastTrigger(s.now()) {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.trigger(context.Background())
		}()
	}
	return nil
}

// Stop halts the cron loop. The returned context is done once running jobs complete.
func (s *Scheduler) Stop() context.Context {
	cronCtx := s.cron.Stop()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronCtx.Done()
		s.wg.Wait()
		cancel()
	}()
	return ctx
}

// RunOnce executes a cycle for the current clock time.
func (s *Scheduler) RunOnce(ctx context.Context) (reminders.CycleReport, error) {
	return s.RunAt(ctx, s.now())
}

// RunAt executes a cycle as if the clock read now. The day's lock is claimed first;
// lock errors fail open since the store rejects duplicate occasions anyway.
func (s *Scheduler) RunAt(ctx context.Context, now time.Time) (reminders.CycleReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !s.running.TryLock() {
		return reminders.CycleReport{}, ErrCycleInProgress
	}
	defer s.running.Unlock()
	s.inFlight.Store(true)
	defer s.inFlight.Store(false)

	day := now.In(s.loc).Format("2006-01-02")
	if s.locker != nil {
		acquired, err := s.locker.Acquire(ctx, lockKeyPrefix+day, s.lockTTL)
		switch {
		case err != nil:
			s.log.Warn("cycle lock unavailable, running without it", zap.String("day", day), zap.Error(err))
		case !acquired:
			metrics.ReminderCycles.WithLabelValues("skipped").Inc()
			s.log.Info("cycle already ran for this day", zap.String("day", day))
			return reminders.CycleReport{}, ErrCycleAlreadyRan
		}
	}

	s.log.Info("reminder cycle starting", zap.String("day", day), zap.Time("now", now))
	report, err := s.runner.RunCycle(ctx, now)

	s.mu.Lock()
	s.lastRunAt = now
	s.lastErr = err
	s.lastReport = &report
	if err == nil {
		s.lastSuccess = now
	}
	s.mu.Unlock()

	if err != nil {
		for _, cause := range multierr.Errors(err) {
			s.log.Error("reminder cycle completed with errors", zap.String("day", day), zap.Error(cause))
		}
	}
	return report, err
}

// LastSuccessfulCycle returns the time of the last cycle without evaluator failures.
func (s *Scheduler) LastSuccessfulCycle() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSuccess, !s.lastSuccess.IsZero()
}

// Status returns a snapshot of the scheduler state.
func (s *Scheduler) Status() Status {
	status := Status{
		Timezone:    s.loc.String(),
		TriggerTime: s.triggerTime(),
		Running:     s.inFlight.Load(),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	status.Enabled = s.started
	if s.started {
		if next := s.cron.Entry(s.entryID).Next; !next.IsZero() {
			next = next.In(s.loc)
			status.NextRun = &next
		}
	}
	if !s.lastRunAt.IsZero() {
		at := s.lastRunAt
		status.LastRunAt = &at
	}
	if !s.lastSuccess.IsZero() {
		at := s.lastSuccess
		status.LastSuccessAt = &at
	}
	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
	}
	if s.lastReport != nil {
		report := *s.lastReport
		status.LastReport = &report
	}
	return status
}

func (s *Scheduler) trigger(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrCycleAlreadyRan) {
		s.log.Warn("scheduled reminder cycle failed", zap.Error(err))
	}
}

func (s *Scheduler) pastTrigger(now time.Time) bool {
	local := now.In(s.loc)
	trigger := time.Date(local.Year(), local.Month(), local.Day(), s.hour, s.minute, 0, 0, s.loc)
	return !local.Before(trigger)
}

func (s *Scheduler) triggerTime() string {
	return fmt.Sprintf("%02d:%02d", s.hour, s.minute)
}
