package reminders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/cabinet/internal/providers"
	"github.com/charlesng35/cabinet/internal/services"
	"github.com/charlesng35/cabinet/pkg/logger"
	"github.com/charlesng35/cabinet/pkg/mail"
	"github.com/charlesng35/cabinet/pkg/metrics"
)

// EmailOutcome describes what happened to the email leg of a dispatch.
type EmailOutcome string

const (
	EmailNotApplicable EmailOutcome = ""
	EmailSent          EmailOutcome = "sent"
	EmailFailed        EmailOutcome = "failed"
	EmailSkipped       EmailOutcome = "skipped"
)

const defaultCallTimeout = 10 * time.Second

// DispatchResult is returned for every candidate whose notification was stored.
type DispatchResult struct {
	Notification *services.NotificationDTO
	Email        EmailOutcome
}

// DispatcherOption customises the Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithMailer enables the email leg for critical alerts.
func WithMailer(mailer mail.Mailer) DispatcherOption {
	return func(d *Dispatcher) {
		d.mailer = mailer
	}
}

// WithUserDirectory resolves recipient contact details when a candidate carries none.
func WithUserDirectory(directory providers.UserDirectory) DispatcherOption {
	return func(d *Dispatcher) {
		d.directory = directory
	}
}

// WithCallTimeout bounds each store write and email send.
func WithCallTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// Dispatcher stores accepted candidates and emails critical ones.
type Dispatcher struct {
	store     NotificationStore
	mailer    mail.Mailer
	directory providers.UserDirectory
	loc       *time.Location
	timeout   time.Duration
	log       *zap.Logger
}

// NewDispatcher constructs a Dispatcher. loc defines the day component of dedup keys.
func NewDispatcher(store NotificationStore, loc *time.Location, opts ...DispatcherOption) (*Dispatcher, error) {
	if store == nil {
		return nil, errors.New("dispatcher: store is required")
	}
	if loc == nil {
		loc = time.UTC
	}
	d := &Dispatcher{
		store:   store,
		loc:     loc,
		timeout: defaultCallTimeout,
		log:     logger.WithModule("reminders"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch persists the candidate and, for critical alerts, attempts the email.
// Only a store failure is returned; services.ErrDuplicateNotification means a
// concurrent cycle already stored the same occasion.
func (d *Dispatcher) Dispatch(ctx context.Context, alert CandidateAlert, now time.Time) (DispatchResult, error) {
	metadata := make(map[string]any, len(alert.Metadata)+1)
	for k, v := range alert.Metadata {
		metadata[k] = v
	}
	metadata["tier"] = string(alert.Tier)

	storeCtx, cancel := context.WithTimeout(ctx, d.timeout)
	notification, err := d.store.Create(storeCtx, services.CreateNotificationInput{
		RecipientID:   alert.RecipientID,
		Kind:          alert.Kind,
		Title:         alert.Title,
		Message:       alert.Message,
		ReferenceType: alert.ReferenceType,
		ReferenceID:   alert.ReferenceID,
		DedupBucket:   alert.DedupBucket,
		DedupKey:      alert.DedupKey(now.In(d.loc)),
		Metadata:      metadata,
		CreatedAt:     now,
	})
	cancel()
	if err != nil {
		return DispatchResult{}, err
	}

	result := DispatchResult{Notification: notification}
	if alert.Tier != TierCritical {
		return result, nil
	}

	result.Email = d.sendEmail(ctx, alert)
	metrics.ReminderEmails.WithLabelValues(string(result.Email)).Inc()
	return result, nil
}

func (d *Dispatcher) sendEmail(ctx context.Context, alert CandidateAlert) EmailOutcome {
	fields := []zap.Field{
		zap.String("recipient_id", alert.RecipientID),
		zap.String("reference_type", alert.ReferenceType),
		zap.String("reference_id", alert.ReferenceID),
		zap.String("dedup_bucket", alert.DedupBucket),
	}

	if d.mailer == nil {
		return EmailSkipped
	}

	address, verified := d.resolveContact(ctx, alert)
	if address == "" || !verified {
		d.log.Debug("recipient email not verified, email skipped", fields...)
		return EmailSkipped
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := d.mailer.Send(sendCtx, mail.Message{
		To:       []string{address},
		Subject:  alert.EmailSubject,
		HTMLBody: alert.EmailBody,
	})
	switch {
	case err == nil:
		return EmailSent
	case errors.Is(err, mail.ErrSMTPDisabled):
		return EmailSkipped
	default:
		d.log.Warn("reminder email failed", append(fields, zap.Error(err))...)
		return EmailFailed
	}
}

func (d *Dispatcher) resolveContact(ctx context.Context, alert CandidateAlert) (string, bool) {
	address := strings.TrimSpace(alert.RecipientEmail)
	if address != "" || d.directory == nil {
		return address, alert.RecipientEmailVerified
	}

	lookupCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	recipient, err := d.directory.Lookup(lookupCtx, alert.RecipientID)
	if err != nil {
		d.log.Warn("resolve recipient failed",
			zap.String("recipient_id", alert.RecipientID),
			zap.Error(fmt.Errorf("dispatcher: %w", err)),
		)
		return "", false
	}
	return strings.TrimSpace(recipient.Email), recipient.EmailVerified
}
