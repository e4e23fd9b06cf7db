// Package reminders implements the daily evaluation cycle that turns agenda and
// billing state into deduplicated notifications.
package reminders

import (
	"context"
	"fmt"
	"iter"
	"time"
)

// Evaluator names, also used as metric and log labels.
const (
	UpcomingEventEvaluatorName  = "upcoming_critical_event"
	OverdueInvoiceEvaluatorName = "overdue_invoice_escalation"
	DueTodayTaskEvaluatorName   = "due_today_task"
)

// Evaluator turns provider data into candidate alerts for one cycle. Evaluate runs
// the provider query eagerly and returns a single-pass sequence of candidates.
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, now time.Time) (iter.Seq[CandidateAlert], error)
}

// ProviderQueryError reports a data provider failure. It aborts the evaluator's
// pass without affecting the other evaluators of the cycle.
type ProviderQueryError struct {
	Evaluator string
	Err       error
}

func (e *ProviderQueryError) Error() string {
	return fmt.Sprintf("reminders: %s: provider query: %v", e.Evaluator, e.Err)
}

func (e *ProviderQueryError) Unwrap() error {
	return e.Err
}
