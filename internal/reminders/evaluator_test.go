package reminders

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/cabinet/internal/models"
	"github.com/charlesng35/cabinet/internal/providers"
)

func TestDaysOverdue(t *testing.T) {
	due := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	require.Equal(t, 0, daysOverdue(due, due))
	require.Equal(t, 0, daysOverdue(due.Add(23*time.Hour), due))
	require.Equal(t, 1, daysOverdue(due.Add(24*time.Hour), due))
	require.Equal(t, 6, daysOverdue(due.Add(7*24*time.Hour-time.Second), due))
	require.Equal(t, 7, daysOverdue(due.Add(7*24*time.Hour), due))
	require.Equal(t, 0, daysOverdue(due.Add(-time.Hour), due))
}

func TestOverdueEvaluatorThresholds(t *testing.T) {
	now := cycleTime(2026, time.March, 20)
	invoices := &fakeInvoices{}
	for _, days := range []int{1, 2, 6, 7, 8, 14, 15, 16, 30} {
		invoices.invoices = append(invoices.invoices,
			unpaidInvoice("inv", "FAC", now.AddDate(0, 0, -days), 10))
	}
	evaluator, err := NewOverdueInvoiceEvaluator(invoices, paris)
	require.NoError(t, err)

	seq, err := evaluator.Evaluate(context.Background(), now)
	require.NoError(t, err)

	var buckets []string
	for alert := range seq {
		require.Equal(t, TierCritical, alert.Tier)
		require.Equal(t, LookbackSinceStartOfDay, alert.Lookback)
		buckets = append(buckets, alert.DedupBucket)
	}
	require.Equal(t, []string{"overdue-1", "overdue-7", "overdue-15"}, buckets)
}

func TestOverdueEvaluatorSkipsPaidInvoices(t *testing.T) {
	now := cycleTime(2026, time.March, 20)
	paid := unpaidInvoice("inv-paid", "FAC-1", now.AddDate(0, 0, -7), 10)
	paid.Status = models.InvoiceStatusPaid
	evaluator, err := NewOverdueInvoiceEvaluator(&fakeInvoices{invoices: []providers.Invoice{paid}}, paris)
	require.NoError(t, err)

	seq, err := evaluator.Evaluate(context.Background(), now)
	require.NoError(t, err)
	require.Empty(t, slices.Collect(seq))
}

func TestUpcomingEvaluatorRequiresVerifiedOwner(t *testing.T) {
	now := cycleTime(2026, time.March, 4)
	unverified := verifiedEvent("evt-2", "Réunion associés", models.EventKindMeeting, now.Add(24*time.Hour))
	unverified.OwnerEmailVerified = false
	events := &fakeEvents{events: []providers.Event{
		verifiedEvent("evt-1", "Rendez-vous Martin", models.EventKindMeeting, now.Add(24*time.Hour)),
		unverified,
	}}

	evaluator, err := NewUpcomingEventEvaluator(events, paris)
	require.NoError(t, err)
	seq, err := evaluator.Evaluate(context.Background(), now)
	require.NoError(t, err)

	alerts := slices.Collect(seq)
	require.Len(t, alerts, 1)
	require.Equal(t, "evt-1", alerts[0].ReferenceID)
	require.Equal(t, "Rendez-vous demain : Rendez-vous Martin", alerts[0].Title)
	require.NoError(t, alerts[0].Validate())
}

func TestDueTodayEvaluatorUsesLocalCalendarDay(t *testing.T) {
	// 00:30 local on March 5th is still March 4th in UTC.
	now := cycleTime(2026, time.March, 5)
	events := &fakeEvents{events: []providers.Event{
		verifiedEvent("early", "Dépôt greffe", models.EventKindDeadline, time.Date(2026, 3, 5, 0, 30, 0, 0, paris)),
		verifiedEvent("yesterday", "Relance", models.EventKindTask, time.Date(2026, 3, 4, 23, 30, 0, 0, paris)),
		verifiedEvent("tomorrow", "Relance", models.EventKindTask, time.Date(2026, 3, 6, 0, 0, 0, 0, paris)),
	}}

	evaluator, err := NewDueTodayTaskEvaluator(events, paris)
	require.NoError(t, err)
	seq, err := evaluator.Evaluate(context.Background(), now)
	require.NoError(t, err)

	alerts := slices.Collect(seq)
	require.Len(t, alerts, 1)
	require.Equal(t, "early", alerts[0].ReferenceID)
	require.Equal(t, models.NotificationKindDeadline, alerts[0].Kind)
	require.Equal(t, TierSecondary, alerts[0].Tier)
	require.Empty(t, alerts[0].EmailSubject)
	require.NoError(t, alerts[0].Validate())
}

func TestEvaluatorsWrapProviderErrors(t *testing.T) {
	boom := errors.New("timeout")
	now := cycleTime(2026, time.March, 4)

	upcoming, err := NewUpcomingEventEvaluator(&fakeEvents{err: boom}, paris)
	require.NoError(t, err)
	_, err = upcoming.Evaluate(context.Background(), now)
	var queryErr *ProviderQueryError
	require.ErrorAs(t, err, &queryErr)
	require.ErrorIs(t, err, boom)

	overdue, err := NewOverdueInvoiceEvaluator(&fakeInvoices{err: boom}, paris)
	require.NoError(t, err)
	_, err = overdue.Evaluate(context.Background(), now)
	require.ErrorIs(t, err, boom)

	_, err = NewDueTodayTaskEvaluator(nil, paris)
	require.Error(t, err)
}

func TestCandidateDedupKeyAndLookback(t *testing.T) {
	alert := CandidateAlert{
		RecipientID:   "user-1",
		ReferenceType: models.ReferenceTypeInvoice,
		ReferenceID:   "inv-1",
		DedupBucket:   "overdue-7",
	}
	now := time.Date(2026, 3, 4, 23, 30, 0, 0, time.UTC)
	require.Equal(t, "user-1|invoice|inv-1|overdue-7|2026-03-05", alert.DedupKey(now.In(paris)))

	require.Equal(t, now.Add(-24*time.Hour), LookbackRolling24h.WindowStart(now, paris))
	require.True(t, LookbackSinceStartOfDay.WindowStart(now, paris).Equal(time.Date(2026, 3, 5, 0, 0, 0, 0, paris)))
}
