package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a member of the practice. The reminder engine only reads the contact fields.
type User struct {
	ID              string     `gorm:"primaryKey;type:uuid" json:"id"`
	Email           string     `gorm:"uniqueIndex;not null" json:"email"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	IsActive        bool       `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// EmailVerified reports whether the user confirmed their address.
func (u User) EmailVerified() bool {
	return u.EmailVerifiedAt != nil
}
