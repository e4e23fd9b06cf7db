package reminders

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/charlesng35/cabinet/internal/models"
	"github.com/charlesng35/cabinet/internal/providers"
)

const dueTodayBucket = "due-today"

var dueTodayKinds = []models.EventKind{models.EventKindTask, models.EventKindDeadline}

// DueTodayTaskEvaluator posts a silent in-app reminder for tasks and deadlines due today.
type DueTodayTaskEvaluator struct {
	events providers.EventProvider
	loc    *time.Location
}

// NewDueTodayTaskEvaluator constructs the evaluator. loc defines the calendar day.
func NewDueTodayTaskEvaluator(events providers.EventProvider, loc *time.Location) (*DueTodayTaskEvaluator, error) {
	if events == nil {
		return nil, errors.New("due today evaluator: event provider is required")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &DueTodayTaskEvaluator{events: events, loc: loc}, nil
}

// Name implements Evaluator.
func (e *DueTodayTaskEvaluator) Name() string {
	return DueTodayTaskEvaluatorName
}

// Evaluate implements Evaluator.
func (e *DueTodayTaskEvaluator) Evaluate(ctx context.Context, now time.Time) (iter.Seq[CandidateAlert], error) {
	start := startOfDay(now, e.loc)
	end := start.AddDate(0, 0, 1)

	events, err := e.events.QueryByWindow(ctx, start, end, dueTodayKinds)
	if err != nil {
		return nil, &ProviderQueryError{Evaluator: e.Name(), Err: err}
	}

	return func(yield func(CandidateAlert) bool) {
		for _, event := range events {
			if !yield(e.candidate(event)) {
				return
			}
		}
	}, nil
}

func (e *DueTodayTaskEvaluator) candidate(event providers.Event) CandidateAlert {
	kind := models.NotificationKindTask
	title := "Tâche à faire aujourd'hui : " + event.Title
	if event.Kind == models.EventKindDeadline {
		kind = models.NotificationKindDeadline
		title = "Échéance aujourd'hui : " + event.Title
	}

	return CandidateAlert{
		RecipientID:            event.OwnerID,
		RecipientEmail:         event.OwnerEmail,
		RecipientEmailVerified: event.OwnerEmailVerified,
		Kind:                   kind,
		Title:                  truncateTitle(title),
		Message:                fmt.Sprintf("%s prévu à %s", event.Title, formatTime(event.StartAt, e.loc)),
		Tier:                   TierSecondary,
		ReferenceID:            event.ID,
		ReferenceType:          models.ReferenceTypeEvent,
		DedupBucket:            dueTodayBucket,
		Lookback:               LookbackRolling24h,
		Metadata: map[string]any{
			"event_kind": string(event.Kind),
			"start_at":   event.StartAt.UTC().Format(time.RFC3339),
		},
	}
}
