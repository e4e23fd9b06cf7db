package models

import "time"

// CycleLock marks a named job run as claimed until ExpiresAt. It backs the
// database lock used when no Redis instance is configured.
type CycleLock struct {
	Key       string    `gorm:"primaryKey;size:256"`
	Holder    string    `gorm:"size:128"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
