package models

import "time"

// EventKind enumerates agenda entry types.
type EventKind string

const (
	EventKindHearing  EventKind = "HEARING"
	EventKindMeeting  EventKind = "MEETING"
	EventKindTask     EventKind = "TASK"
	EventKindDeadline EventKind = "DEADLINE"
)

// CalendarEvent is an agenda entry owned by a user.
type CalendarEvent struct {
	BaseModel

	OwnerID     string    `gorm:"type:uuid;not null;index" json:"owner_id"`
	Owner       *User     `gorm:"foreignKey:OwnerID" json:"-"`
	Title       string    `gorm:"type:varchar(255);not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Location    string    `gorm:"type:varchar(255)" json:"location"`
	Kind        EventKind `gorm:"type:varchar(32);not null;index" json:"kind"`
	StartAt     time.Time `gorm:"not null;index" json:"start_at"`
	EndAt       time.Time `json:"end_at"`
}
