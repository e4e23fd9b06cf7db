package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/cabinet/internal/services"
	"github.com/charlesng35/cabinet/pkg/logger"
	"github.com/charlesng35/cabinet/pkg/metrics"
)

// EvaluatorReport counts what one evaluator produced during a cycle.
type EvaluatorReport struct {
	Name          string `json:"name"`
	Candidates    int    `json:"candidates"`
	Created       int    `json:"created"`
	Suppressed    int    `json:"suppressed"`
	Failed        int    `json:"failed"`
	EmailsSent    int    `json:"emails_sent"`
	EmailsFailed  int    `json:"emails_failed"`
	EmailsSkipped int    `json:"emails_skipped"`
	Error         string `json:"error,omitempty"`
}

// CycleReport summarises a full evaluation cycle.
type CycleReport struct {
	Now        time.Time         `json:"now"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Evaluators []EvaluatorReport `json:"evaluators"`
}

// Totals sums the per-evaluator counters.
func (r CycleReport) Totals() EvaluatorReport {
	total := EvaluatorReport{Name: "total"}
	for _, ev := range r.Evaluators {
		total.Candidates += ev.Candidates
		total.Created += ev.Created
		total.Suppressed += ev.Suppressed
		total.Failed += ev.Failed
		total.EmailsSent += ev.EmailsSent
		total.EmailsFailed += ev.EmailsFailed
		total.EmailsSkipped += ev.EmailsSkipped
	}
	return total
}

// EngineOption customises the Engine.
type EngineOption func(*Engine)

// WithQueryTimeout bounds each provider query and dedup lookup.
func WithQueryTimeout(timeout time.Duration) EngineOption {
	return func(e *Engine) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

// WithEngineClock overrides the wall clock used for report timings.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.clock = now
		}
	}
}

// Engine runs the evaluators in sequence and routes their candidates through the
// dedup guard and the dispatcher.
type Engine struct {
	evaluators []Evaluator
	guard      *Guard
	dispatcher *Dispatcher
	timeout    time.Duration
	clock      func() time.Time
	log        *zap.Logger
}

// NewEngine constructs an Engine. Evaluators run in the order given.
func NewEngine(guard *Guard, dispatcher *Dispatcher, evaluators []Evaluator, opts ...EngineOption) (*Engine, error) {
	if guard == nil {
		return nil, errors.New("engine: dedup guard is required")
	}
	if dispatcher == nil {
		return nil, errors.New("engine: dispatcher is required")
	}
	if len(evaluators) == 0 {
		return nil, errors.New("engine: at least one evaluator is required")
	}

	e := &Engine{
		evaluators: evaluators,
		guard:      guard,
		dispatcher: dispatcher,
		timeout:    defaultCallTimeout,
		clock:      time.Now,
		log:        logger.WithModule("reminders"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// RunCycle evaluates every rule against now. Evaluator failures, including panics,
// are collected into the returned error while the remaining evaluators still run.
// Per-item failures are only counted in the report.
func (e *Engine) RunCycle(ctx context.Context, now time.Time) (CycleReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	report := CycleReport{Now: now, StartedAt: e.clock()}
	var errs error

	for _, evaluator := range e.evaluators {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("reminders: cycle interrupted: %w", err))
			break
		}

		evReport, err := e.runEvaluator(ctx, evaluator, now)
		if err != nil {
			evReport.Error = err.Error()
			errs = multierr.Append(errs, err)
			e.log.Error("evaluator aborted",
				zap.String("evaluator", evaluator.Name()),
				zap.Error(err),
			)
		}
		report.Evaluators = append(report.Evaluators, evReport)
	}

	report.FinishedAt = e.clock()

	result := "success"
	if errs != nil {
		result = "partial"
	}
	metrics.ObserveCycle(result, report.StartedAt, report.FinishedAt)

	totals := report.Totals()
	e.log.Info("reminder cycle finished",
		zap.Time("now", now),
		zap.Int("candidates", totals.Candidates),
		zap.Int("created", totals.Created),
		zap.Int("suppressed", totals.Suppressed),
		zap.Int("failed", totals.Failed),
		zap.Int("emails_sent", totals.EmailsSent),
		zap.Int("emails_failed", totals.EmailsFailed),
		zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)),
	)

	return report, errs
}

func (e *Engine) runEvaluator(ctx context.Context, evaluator Evaluator, now time.Time) (report EvaluatorReport, err error) {
	name := evaluator.Name()
	report.Name = name

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reminders: %s: panic: %v", name, r)
		}
	}()

	queryCtx, cancel := context.WithTimeout(ctx, e.timeout)
	candidates, err := evaluator.Evaluate(queryCtx, now)
	cancel()
	if err != nil {
		return report, err
	}

	for alert := range candidates {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("reminders: %s: %w", name, err)
		}
		report.Candidates++
		e.processCandidate(ctx, name, alert, now, &report)
	}
	return report, nil
}

// processCandidate handles a single alert. Failures are logged and counted, never returned.
func (e *Engine) processCandidate(ctx context.Context, evaluator string, alert CandidateAlert, now time.Time, report *EvaluatorReport) {
	fields := []zap.Field{
		zap.String("evaluator", evaluator),
		zap.String("recipient_id", alert.RecipientID),
		zap.String("reference_type", alert.ReferenceType),
		zap.String("reference_id", alert.ReferenceID),
		zap.String("dedup_bucket", alert.DedupBucket),
	}

	if err := alert.Validate(); err != nil {
		report.Failed++
		metrics.ReminderCandidates.WithLabelValues(evaluator, "invalid").Inc()
		e.log.Warn("invalid candidate skipped", append(fields, zap.Error(err))...)
		return
	}

	lookupCtx, cancel := context.WithTimeout(ctx, e.timeout)
	seen, err := e.guard.Seen(lookupCtx, alert, now)
	cancel()
	if err != nil {
		report.Failed++
		metrics.ReminderCandidates.WithLabelValues(evaluator, "failed").Inc()
		e.log.Warn("dedup lookup failed", append(fields, zap.Error(err))...)
		return
	}
	if seen {
		report.Suppressed++
		metrics.ReminderCandidates.WithLabelValues(evaluator, "suppressed").Inc()
		e.log.Debug("duplicate suppressed", fields...)
		return
	}

	result, err := e.dispatcher.Dispatch(ctx, alert, now)
	switch {
	case errors.Is(err, services.ErrDuplicateNotification):
		report.Suppressed++
		metrics.ReminderCandidates.WithLabelValues(evaluator, "suppressed").Inc()
		e.log.Debug("duplicate rejected by store", fields...)
		return
	case err != nil:
		report.Failed++
		metrics.ReminderCandidates.WithLabelValues(evaluator, "failed").Inc()
		e.log.Warn("store notification failed", append(fields, zap.Error(err))...)
		return
	}

	report.Created++
	metrics.ReminderCandidates.WithLabelValues(evaluator, "created").Inc()
	switch result.Email {
	case EmailSent:
		report.EmailsSent++
	case EmailFailed:
		report.EmailsFailed++
	case EmailSkipped:
		report.EmailsSkipped++
	}
}
