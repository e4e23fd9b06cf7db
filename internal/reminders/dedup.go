package reminders

import (
	"context"
	"errors"
	"time"

	"github.com/charlesng35/cabinet/internal/services"
)

// NotificationStore is the subset of the notification service the engine writes through.
type NotificationStore interface {
	Create(ctx context.Context, input services.CreateNotificationInput) (*services.NotificationDTO, error)
	ExistsSince(ctx context.Context, lookup services.DedupLookup, since time.Time) (bool, error)
}

// Guard drops candidates for which an equivalent notification already exists.
type Guard struct {
	store NotificationStore
	loc   *time.Location
}

// NewGuard constructs a Guard. loc defines calendar-day lookbacks.
func NewGuard(store NotificationStore, loc *time.Location) (*Guard, error) {
	if store == nil {
		return nil, errors.New("dedup guard: store is required")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Guard{store: store, loc: loc}, nil
}

// Seen reports whether a notification for the same recipient, reference and bucket
// was created inside the candidate's lookback window.
func (g *Guard) Seen(ctx context.Context, alert CandidateAlert, now time.Time) (bool, error) {
	return g.store.ExistsSince(ctx, services.DedupLookup{
		RecipientID:   alert.RecipientID,
		ReferenceType: alert.ReferenceType,
		ReferenceID:   alert.ReferenceID,
		DedupBucket:   alert.DedupBucket,
	}, alert.Lookback.WindowStart(now, g.loc))
}
