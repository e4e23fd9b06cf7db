package reminders

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charlesng35/cabinet/internal/models"
	"github.com/charlesng35/cabinet/pkg/validator"
)

// Tier selects the delivery channels of an alert.
type Tier string

const (
	// TierCritical alerts are stored in-app and emailed to verified recipients.
	TierCritical Tier = "CRITICAL"
	// TierSecondary alerts are stored in-app only.
	TierSecondary Tier = "SECONDARY"
)

// Lookback selects how far back the dedup guard searches for an equivalent notification.
type Lookback int

const (
	// LookbackRolling24h covers the 24 hours preceding the cycle.
	LookbackRolling24h Lookback = iota
	// LookbackSinceStartOfDay covers the current calendar day in the engine timezone.
	LookbackSinceStartOfDay
)

// WindowStart returns the earliest creation time that still counts as a duplicate.
func (l Lookback) WindowStart(now time.Time, loc *time.Location) time.Time {
	switch l {
	case LookbackSinceStartOfDay:
		return startOfDay(now, loc)
	default:
		return now.Add(-24 * time.Hour)
	}
}

// ErrInvalidCandidate marks a candidate that failed validation and was skipped.
var ErrInvalidCandidate = errors.New("reminders: invalid candidate")

// CandidateAlert is produced by an evaluator and consumed within the same cycle.
type CandidateAlert struct {
	RecipientID            string                  `validate:"required,notblank,keysafe"`
	RecipientEmail         string                  `validate:"omitempty,email"`
	RecipientEmailVerified bool
	Kind                   models.NotificationKind `validate:"required"`
	Title                  string                  `validate:"required,notblank,max=255"`
	Message                string
	Tier                   Tier                    `validate:"oneof=CRITICAL SECONDARY"`
	EmailSubject           string                  `validate:"required_if=Tier CRITICAL"`
	EmailBody              string                  `validate:"required_if=Tier CRITICAL"`
	ReferenceID            string                  `validate:"required,notblank,keysafe"`
	ReferenceType          string                  `validate:"required,notblank,keysafe"`
	DedupBucket            string                  `validate:"required,notblank,keysafe"`
	Lookback               Lookback
	Metadata               map[string]any
}

// Validate checks the candidate before it reaches the store.
func (c CandidateAlert) Validate() error {
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidCandidate, c.Kind)
	}
	if err := validator.ValidateStruct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCandidate, err)
	}
	return nil
}

// DedupKey identifies the alert occasion for the given cycle day. It is stored
// under a unique index so that concurrent cycles cannot persist it twice.
func (c CandidateAlert) DedupKey(day time.Time) string {
	return strings.Join([]string{
		strings.TrimSpace(c.RecipientID),
		c.ReferenceType,
		c.ReferenceID,
		c.DedupBucket,
		day.Format("2006-01-02"),
	}, validator.KeySeparator)
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
