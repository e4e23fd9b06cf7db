package reminders

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/cabinet/internal/models"
	"github.com/charlesng35/cabinet/internal/providers"
	"github.com/charlesng35/cabinet/pkg/logger"
)

// The upcoming window is closed on both ends: [now+23h, now+25h].
const (
	upcomingHorizonStart = 23 * time.Hour
	upcomingHorizonEnd   = 25 * time.Hour
	upcomingBucket       = "T-24h"
)

var upcomingKinds = []models.EventKind{models.EventKindHearing, models.EventKindMeeting}

// UpcomingEventEvaluator warns owners of hearings and meetings starting about 24 hours from now.
type UpcomingEventEvaluator struct {
	events providers.EventProvider
	loc    *time.Location
	log    *zap.Logger
}

// NewUpcomingEventEvaluator constructs the evaluator. loc drives date formatting.
func NewUpcomingEventEvaluator(events providers.EventProvider, loc *time.Location) (*UpcomingEventEvaluator, error) {
	if events == nil {
		return nil, errors.New("upcoming event evaluator: event provider is required")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &UpcomingEventEvaluator{
		events: events,
		loc:    loc,
		log:    logger.WithModule("reminders").With(zap.String("evaluator", UpcomingEventEvaluatorName)),
	}, nil
}

// Name implements Evaluator.
func (e *UpcomingEventEvaluator) Name() string {
	return UpcomingEventEvaluatorName
}

// Evaluate implements Evaluator. Events whose owner has no verified email are ignored.
func (e *UpcomingEventEvaluator) Evaluate(ctx context.Context, now time.Time) (iter.Seq[CandidateAlert], error) {
	// Providers treat the end as exclusive, so nudge it past now+25h.
	end := now.Add(upcomingHorizonEnd).Add(time.Nanosecond)
	events, err := e.events.QueryByWindow(ctx, now.Add(upcomingHorizonStart), end, upcomingKinds)
	if err != nil {
		return nil, &ProviderQueryError{Evaluator: e.Name(), Err: err}
	}

	return func(yield func(CandidateAlert) bool) {
		for _, event := range events {
			if !event.OwnerEmailVerified || event.OwnerEmail == "" {
				e.log.Debug("owner email not verified, skipping event",
					zap.String("reference_id", event.ID),
					zap.String("recipient_id", event.OwnerID),
				)
				continue
			}
			alert, err := e.candidate(event)
			if err != nil {
				e.log.Warn("build candidate failed", zap.String("reference_id", event.ID), zap.Error(err))
				continue
			}
			if !yield(alert) {
				return
			}
		}
	}, nil
}

func (e *UpcomingEventEvaluator) candidate(event providers.Event) (CandidateAlert, error) {
	label := eventLabel(event.Kind)
	date := formatDate(event.StartAt, e.loc)
	clock := formatTime(event.StartAt, e.loc)

	message := fmt.Sprintf("%s le %s à %s", event.Title, date, clock)
	if event.Location != "" {
		message += " (" + event.Location + ")"
	}

	body, err := renderTemplate(eventEmailTemplate, eventEmailData{
		Label:       label,
		Title:       event.Title,
		Date:        date,
		Time:        clock,
		Location:    event.Location,
		Description: event.Description,
	})
	if err != nil {
		return CandidateAlert{}, err
	}

	return CandidateAlert{
		RecipientID:            event.OwnerID,
		RecipientEmail:         event.OwnerEmail,
		RecipientEmailVerified: event.OwnerEmailVerified,
		Kind:                   models.NotificationKindAgenda,
		Title:                  truncateTitle(fmt.Sprintf("%s demain : %s", label, event.Title)),
		Message:                message,
		Tier:                   TierCritical,
		EmailSubject:           fmt.Sprintf("Rappel : %s demain - %s le %s à %s", label, event.Title, date, clock),
		EmailBody:              body,
		ReferenceID:            event.ID,
		ReferenceType:          models.ReferenceTypeEvent,
		DedupBucket:            upcomingBucket,
		Lookback:               LookbackRolling24h,
		Metadata: map[string]any{
			"event_kind": string(event.Kind),
			"start_at":   event.StartAt.UTC().Format(time.RFC3339),
			"location":   event.Location,
		},
	}, nil
}
