package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/cabinet/internal/models"
	apperrors "github.com/charlesng35/cabinet/pkg/errors"
)

// GormEventProvider reads agenda entries from the relational store.
type GormEventProvider struct {
	db *gorm.DB
}

// NewGormEventProvider constructs an EventProvider backed by gorm.
func NewGormEventProvider(db *gorm.DB) (*GormEventProvider, error) {
	if db == nil {
		return nil, errors.New("event provider: db is required")
	}
	return &GormEventProvider{db: db}, nil
}

// QueryByWindow implements EventProvider.
func (p *GormEventProvider) QueryByWindow(ctx context.Context, start, end time.Time, kinds []models.EventKind) ([]Event, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("event provider: empty window [%s, %s)", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	query := p.db.WithContext(ctx).
		Preload("Owner").
		Where("start_at >= ? AND start_at < ?", start.UTC(), end.UTC()).
		Order("start_at ASC")
	if len(kinds) > 0 {
		query = query.Where("kind IN ?", kinds)
	}

	var rows []models.CalendarEvent
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("event provider: query window: %w", err)
	}

	events := make([]Event, 0, len(rows))
	for _, row := range rows {
		event := Event{
			ID:          row.ID,
			Title:       row.Title,
			Description: row.Description,
			Location:    row.Location,
			Kind:        row.Kind,
			StartAt:     row.StartAt,
			EndAt:       row.EndAt,
			OwnerID:     row.OwnerID,
		}
		if row.Owner != nil {
			event.OwnerEmail = strings.TrimSpace(row.Owner.Email)
			event.OwnerEmailVerified = row.Owner.EmailVerified()
		}
		events = append(events, event)
	}
	return events, nil
}

// GormInvoiceProvider reads invoices from the relational store.
type GormInvoiceProvider struct {
	db *gorm.DB
}

// NewGormInvoiceProvider constructs an InvoiceProvider backed by gorm.
func NewGormInvoiceProvider(db *gorm.DB) (*GormInvoiceProvider, error) {
	if db == nil {
		return nil, errors.New("invoice provider: db is required")
	}
	return &GormInvoiceProvider{db: db}, nil
}

// QueryUnpaidOverdue implements InvoiceProvider.
func (p *GormInvoiceProvider) QueryUnpaidOverdue(ctx context.Context, asOf time.Time) ([]Invoice, error) {
	var rows []models.Invoice
	if err := p.db.WithContext(ctx).
		Preload("Owner").
		Where("status <> ? AND status <> ?", models.InvoiceStatusPaid, models.InvoiceStatusDraft).
		Where("paid_at IS NULL").
		Where("due_at < ?", asOf.UTC()).
		Order("due_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("invoice provider: query overdue: %w", err)
	}

	invoices := make([]Invoice, 0, len(rows))
	for _, row := range rows {
		invoice := Invoice{
			ID:                row.ID,
			Number:            row.Number,
			DueAt:             row.DueAt,
			Status:            row.Status,
			PaidAt:            row.PaidAt,
			TotalAmount:       row.TotalAmount,
			ClientDisplayName: row.ClientDisplayName,
			OwnerID:           row.OwnerID,
		}
		if row.Owner != nil {
			invoice.OwnerEmail = strings.TrimSpace(row.Owner.Email)
			invoice.OwnerEmailVerified = row.Owner.EmailVerified()
		}
		invoices = append(invoices, invoice)
	}
	return invoices, nil
}

// GormUserDirectory resolves users from the relational store.
type GormUserDirectory struct {
	db *gorm.DB
}

// NewGormUserDirectory constructs a UserDirectory backed by gorm.
func NewGormUserDirectory(db *gorm.DB) (*GormUserDirectory, error) {
	if db == nil {
		return nil, errors.New("user directory: db is required")
	}
	return &GormUserDirectory{db: db}, nil
}

// Lookup implements UserDirectory. Inactive users resolve to not found.
func (d *GormUserDirectory) Lookup(ctx context.Context, userID string) (Recipient, error) {
	var user models.User
	if err := d.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", strings.TrimSpace(userID), true).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Recipient{}, apperrors.ErrNotFound
		}
		return Recipient{}, fmt.Errorf("user directory: lookup: %w", err)
	}
	return Recipient{
		ID:            user.ID,
		Email:         strings.TrimSpace(user.Email),
		EmailVerified: user.EmailVerified(),
	}, nil
}
