// Package providers exposes the read-only queries the reminder engine runs against
// practice-management data (agenda, invoices, users).
package providers

import (
	"context"
	"time"

	"github.com/charlesng35/cabinet/internal/models"
)

// Event is an agenda entry with its owner's contact details resolved inline.
type Event struct {
	ID                 string
	Title              string
	Description        string
	Location           string
	Kind               models.EventKind
	StartAt            time.Time
	EndAt              time.Time
	OwnerID            string
	OwnerEmail         string
	OwnerEmailVerified bool
}

// Invoice is an unpaid invoice with its owner's contact details resolved inline.
type Invoice struct {
	ID                 string
	Number             string
	DueAt              time.Time
	Status             models.InvoiceStatus
	PaidAt             *time.Time
	TotalAmount        float64
	ClientDisplayName  string
	OwnerID            string
	OwnerEmail         string
	OwnerEmailVerified bool
}

// Recipient carries the contact details of a notification recipient.
type Recipient struct {
	ID            string
	Email         string
	EmailVerified bool
}

// EventProvider queries agenda entries.
type EventProvider interface {
	// QueryByWindow returns events of the given kinds starting in [start, end).
	QueryByWindow(ctx context.Context, start, end time.Time, kinds []models.EventKind) ([]Event, error)
}

// InvoiceProvider queries invoices awaiting payment.
type InvoiceProvider interface {
	// QueryUnpaidOverdue returns unpaid invoices whose due date is strictly before asOf.
	QueryUnpaidOverdue(ctx context.Context, asOf time.Time) ([]Invoice, error)
}

// UserDirectory resolves recipient contact details.
type UserDirectory interface {
	Lookup(ctx context.Context, userID string) (Recipient, error)
}
