package models

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationKind classifies notifications for display clients.
type NotificationKind string

const (
	NotificationKindAgenda   NotificationKind = "AGENDA"
	NotificationKindInvoice  NotificationKind = "INVOICE"
	NotificationKindTask     NotificationKind = "TASK"
	NotificationKindDeadline NotificationKind = "DEADLINE"
	NotificationKindDocument NotificationKind = "DOCUMENT"
)

// Valid reports whether the kind is one of the known values.
func (k NotificationKind) Valid() bool {
	switch k {
	case NotificationKindAgenda, NotificationKindInvoice, NotificationKindTask,
		NotificationKindDeadline, NotificationKindDocument:
		return true
	}
	return false
}

// Reference types attached to engine-generated notifications.
const (
	ReferenceTypeEvent   = "event"
	ReferenceTypeInvoice = "invoice"
)

// Notification is an in-app notification owned by a single recipient.
//
// Records are append-only: only the read flag changes after creation. DedupKey is
// set for engine-generated notifications and carries a unique index so that two
// concurrent cycles cannot both persist the same alert occasion.
type Notification struct {
	BaseModel

	RecipientID   string           `gorm:"type:uuid;not null;index:idx_notifications_dedup,priority:1" json:"recipient_id"`
	Kind          NotificationKind `gorm:"type:varchar(32);not null" json:"kind"`
	Title         string           `gorm:"type:varchar(255);not null" json:"title"`
	Message       string           `gorm:"type:text" json:"message"`
	ReferenceType *string          `gorm:"type:varchar(32);index:idx_notifications_dedup,priority:2" json:"reference_type,omitempty"`
	ReferenceID   *string          `gorm:"type:varchar(64);index:idx_notifications_dedup,priority:3" json:"reference_id,omitempty"`
	DedupBucket   *string          `gorm:"type:varchar(64);index:idx_notifications_dedup,priority:4" json:"dedup_bucket,omitempty"`
	DedupKey      *string          `gorm:"type:varchar(255);uniqueIndex" json:"-"`
	Metadata      datatypes.JSON   `json:"metadata,omitempty"`

	IsRead bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`
}
