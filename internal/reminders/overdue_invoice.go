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

// overdueThresholds lists the exact day counts that trigger an escalation.
var overdueThresholds = map[int]bool{1: true, 7: true, 15: true}

// OverdueInvoiceEvaluator escalates unpaid invoices on the 1st, 7th and 15th day past due.
type OverdueInvoiceEvaluator struct {
	invoices providers.InvoiceProvider
	loc      *time.Location
	log      *zap.Logger
}

// NewOverdueInvoiceEvaluator constructs the evaluator. loc drives date formatting.
func NewOverdueInvoiceEvaluator(invoices providers.InvoiceProvider, loc *time.Location) (*OverdueInvoiceEvaluator, error) {
	if invoices == nil {
		return nil, errors.New("overdue invoice evaluator: invoice provider is required")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &OverdueInvoiceEvaluator{
		invoices: invoices,
		loc:      loc,
		log:      logger.WithModule("reminders").With(zap.String("evaluator", OverdueInvoiceEvaluatorName)),
	}, nil
}

// Name implements Evaluator.
func (e *OverdueInvoiceEvaluator) Name() string {
	return OverdueInvoiceEvaluatorName
}

// Evaluate implements Evaluator.
func (e *OverdueInvoiceEvaluator) Evaluate(ctx context.Context, now time.Time) (iter.Seq[CandidateAlert], error) {
	invoices, err := e.invoices.QueryUnpaidOverdue(ctx, now)
	if err != nil {
		return nil, &ProviderQueryError{Evaluator: e.Name(), Err: err}
	}

	return func(yield func(CandidateAlert) bool) {
		for _, invoice := range invoices {
			if invoice.PaidAt != nil || invoice.Status == models.InvoiceStatusPaid {
				continue
			}
			days := daysOverdue(now, invoice.DueAt)
			if !overdueThresholds[days] {
				continue
			}
			alert, err := e.candidate(invoice, days)
			if err != nil {
				e.log.Warn("build candidate failed", zap.String("reference_id", invoice.ID), zap.Error(err))
				continue
			}
			if !yield(alert) {
				return
			}
		}
	}, nil
}

// daysOverdue counts whole days elapsed since dueAt.
func daysOverdue(now, dueAt time.Time) int {
	if !now.After(dueAt) {
		return 0
	}
	return int(now.Sub(dueAt) / (24 * time.Hour))
}

func (e *OverdueInvoiceEvaluator) candidate(invoice providers.Invoice, days int) (CandidateAlert, error) {
	amount := formatAmount(invoice.TotalAmount)
	dueDate := formatDate(invoice.DueAt, e.loc)
	overdue := pluralDays(days)

	client := ""
	if invoice.ClientDisplayName != "" {
		client = " (" + invoice.ClientDisplayName + ")"
	}

	body, err := renderTemplate(invoiceEmailTemplate, invoiceEmailData{
		Number:  invoice.Number,
		Client:  invoice.ClientDisplayName,
		Amount:  amount,
		DueDate: dueDate,
		Overdue: overdue,
	})
	if err != nil {
		return CandidateAlert{}, err
	}

	return CandidateAlert{
		RecipientID:            invoice.OwnerID,
		RecipientEmail:         invoice.OwnerEmail,
		RecipientEmailVerified: invoice.OwnerEmailVerified,
		Kind:                   models.NotificationKindInvoice,
		Title:                  truncateTitle(fmt.Sprintf("Facture %s en retard", invoice.Number)),
		Message: fmt.Sprintf("La facture %s%s de %s est en retard de %s (échéance le %s).",
			invoice.Number, client, amount, overdue, dueDate),
		Tier:          TierCritical,
		EmailSubject:  fmt.Sprintf("Facture %s impayée depuis %s", invoice.Number, overdue),
		EmailBody:     body,
		ReferenceID:   invoice.ID,
		ReferenceType: models.ReferenceTypeInvoice,
		DedupBucket:   fmt.Sprintf("overdue-%d", days),
		Lookback:      LookbackSinceStartOfDay,
		Metadata: map[string]any{
			"days_overdue": days,
			"amount":       invoice.TotalAmount,
			"due_at":       invoice.DueAt.UTC().Format(time.RFC3339),
			"client":       invoice.ClientDisplayName,
		},
	}, nil
}
