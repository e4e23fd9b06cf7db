package reminders

import (
	"context"
	"errors"
	"iter"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/cabinet/internal/database/testutil"
	"github.com/charlesng35/cabinet/internal/models"
	"github.com/charlesng35/cabinet/internal/providers"
	"github.com/charlesng35/cabinet/internal/services"
	"github.com/charlesng35/cabinet/pkg/mail"
)

var paris = time.FixedZone("CET", 3600)

type fakeEvents struct {
	events []providers.Event
	err    error
	calls  int
}

func (f *fakeEvents) QueryByWindow(_ context.Context, start, end time.Time, kinds []models.EventKind) ([]providers.Event, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []providers.Event
	for _, event := range f.events {
		if event.StartAt.Before(start) || !event.StartAt.Before(end) {
			continue
		}
		for _, kind := range kinds {
			if event.Kind == kind {
				out = append(out, event)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

type fakeInvoices struct {
	invoices []providers.Invoice
	err      error
}

func (f *fakeInvoices) QueryUnpaidOverdue(_ context.Context, asOf time.Time) ([]providers.Invoice, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []providers.Invoice
	for _, invoice := range f.invoices {
		if invoice.PaidAt == nil && invoice.DueAt.Before(asOf) {
			out = append(out, invoice)
		}
	}
	return out, nil
}

type fakeMailer struct {
	mu       sync.Mutex
	sent     []mail.Message
	attempts int
	failOn   map[int]error
}

func (m *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attempts++
	if err, ok := m.failOn[m.attempts]; ok {
		return err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeDirectory struct {
	recipients map[string]providers.Recipient
}

func (d *fakeDirectory) Lookup(_ context.Context, userID string) (providers.Recipient, error) {
	recipient, ok := d.recipients[userID]
	if !ok {
		return providers.Recipient{}, errors.New("not found")
	}
	return recipient, nil
}

type staticEvaluator struct {
	name       string
	candidates []CandidateAlert
	panicWith  any
}

func (s *staticEvaluator) Name() string { return s.name }

func (s *staticEvaluator) Evaluate(context.Context, time.Time) (iter.Seq[CandidateAlert], error) {
	if s.panicWith != nil {
		panic(s.panicWith)
	}
	return func(yield func(CandidateAlert) bool) {
		for _, c := range s.candidates {
			if !yield(c) {
				return
			}
		}
	}, nil
}

type harness struct {
	db       *gorm.DB
	store    *services.NotificationService
	events   *fakeEvents
	invoices *fakeInvoices
	mailer   *fakeMailer
	engine   *Engine

	wall time.Time
}

// clock advances the wall clock by one second on every reading.
func (h *harness) clock() time.Time {
	h.wall = h.wall.Add(time.Second)
	return h.wall
}

func newHarness(t *testing.T, extra ...Evaluator) *harness {
	t.Helper()
	return newHarnessIn(t, paris, extra...)
}

func newHarnessIn(t *testing.T, loc *time.Location, extra ...Evaluator) *harness {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store, err := services.NewNotificationService(db)
	require.NoError(t, err)

	h := &harness{
		db:       db,
		store:    store,
		events:   &fakeEvents{},
		invoices: &fakeInvoices{},
		mailer:   &fakeMailer{failOn: map[int]error{}},
		wall:     time.Date(2026, time.March, 4, 7, 0, 0, 0, time.UTC),
	}

	upcoming, err := NewUpcomingEventEvaluator(h.events, loc)
	require.NoError(t, err)
	overdue, err := NewOverdueInvoiceEvaluator(h.invoices, loc)
	require.NoError(t, err)
	dueToday, err := NewDueTodayTaskEvaluator(h.events, loc)
	require.NoError(t, err)

	guard, err := NewGuard(store, loc)
	require.NoError(t, err)
	dispatcher, err := NewDispatcher(store, loc, WithMailer(h.mailer), WithCallTimeout(time.Second))
	require.NoError(t, err)

	evaluators := append([]Evaluator{upcoming, overdue, dueToday}, extra...)
	h.engine, err = NewEngine(guard, dispatcher, evaluators, WithQueryTimeout(time.Second), WithEngineClock(h.clock))
	require.NoError(t, err)
	return h
}

func (h *harness) notifications(t *testing.T) []models.Notification {
	t.Helper()
	var rows []models.Notification
	require.NoError(t, h.db.Order("created_at ASC").Find(&rows).Error)
	return rows
}

func cycleTime(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 8, 0, 0, 0, paris)
}

func verifiedEvent(id, title string, kind models.EventKind, start time.Time) providers.Event {
	return providers.Event{
		ID:                 id,
		Title:              title,
		Kind:               kind,
		StartAt:            start,
		EndAt:              start.Add(time.Hour),
		OwnerID:            "user-claire",
		OwnerEmail:         "claire@example.com",
		OwnerEmailVerified: true,
	}
}

func unpaidInvoice(id, number string, dueAt time.Time, amount float64) providers.Invoice {
	return providers.Invoice{
		ID:                 id,
		Number:             number,
		DueAt:              dueAt,
		Status:             models.InvoiceStatusSent,
		TotalAmount:        amount,
		ClientDisplayName:  "Dupont SARL",
		OwnerID:            "user-compta",
		OwnerEmail:         "compta@example.com",
		OwnerEmailVerified: true,
	}
}
