package cache

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/cabinet/internal/models"
)

// DatabaseLocker implements Locker on the primary SQL database. It is the
// multi-replica fallback when Redis is not configured.
type DatabaseLocker struct {
	db     *gorm.DB
	holder string
	now    func() time.Time
}

// NewDatabaseLocker constructs a database-backed Locker.
func NewDatabaseLocker(db *gorm.DB, holder string) (*DatabaseLocker, error) {
	if db == nil {
		return nil, errors.New("database locker: db is required")
	}
	return &DatabaseLocker{db: db, holder: holder, now: time.Now}, nil
}

// Acquire implements Locker. An expired claim is taken over.
func (l *DatabaseLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, errors.New("database locker: ttl must be positive")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	key = prefixed(key)
	now := l.now().UTC()
	acquired := false

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.CycleLock
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&entry, "key = ?", key).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			acquired = true
			return tx.Create(&models.CycleLock{
				Key:       key,
				Holder:    l.holder,
				ExpiresAt: now.Add(ttl),
			}).Error
		}
		if err != nil {
			return err
		}

		if entry.ExpiresAt.After(now) {
			return nil
		}

		acquired = true
		entry.Holder = l.holder
		entry.ExpiresAt = now.Add(ttl)
		return tx.Save(&entry).Error
	})
	if err != nil {
		return false, err
	}
	return acquired, nil
}
