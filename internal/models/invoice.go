package models

import "time"

// InvoiceStatus tracks the payment lifecycle of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "DRAFT"
	InvoiceStatusSent    InvoiceStatus = "SENT"
	InvoiceStatusOverdue InvoiceStatus = "OVERDUE"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
)

// Invoice is a client invoice issued by a practice member.
type Invoice struct {
	BaseModel

	OwnerID           string        `gorm:"type:uuid;not null;index" json:"owner_id"`
	Owner             *User         `gorm:"foreignKey:OwnerID" json:"-"`
	Number            string        `gorm:"type:varchar(64);uniqueIndex;not null" json:"number"`
	ClientDisplayName string        `gorm:"type:varchar(255)" json:"client_display_name"`
	Status            InvoiceStatus `gorm:"type:varchar(32);not null;index" json:"status"`
	TotalAmount       float64       `gorm:"not null" json:"total_amount"`
	DueAt             time.Time     `gorm:"not null;index" json:"due_at"`
	PaidAt            *time.Time    `json:"paid_at"`
}
