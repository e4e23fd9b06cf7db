package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/cabinet/internal/models"
	apperrors "github.com/charlesng35/cabinet/pkg/errors"
)

const (
	defaultListLimit = 25
	maxListLimit     = 100
)

// ErrDuplicateNotification is returned by Create when a notification with the same dedup key already exists.
var ErrDuplicateNotification = errors.New("notification service: duplicate notification")

// NotificationDTO represents the API-friendly notification payload.
type NotificationDTO struct {
	ID            string                  `json:"id"`
	RecipientID   string                  `json:"recipient_id"`
	Kind          models.NotificationKind `json:"kind"`
	Title         string                  `json:"title"`
	Message       string                  `json:"message"`
	ReferenceType string                  `json:"reference_type,omitempty"`
	ReferenceID   string                  `json:"reference_id,omitempty"`
	DedupBucket   string                  `json:"dedup_bucket,omitempty"`
	Metadata      map[string]any          `json:"metadata,omitempty"`
	IsRead        bool                    `json:"is_read"`
	CreatedAt     time.Time               `json:"created_at"`
	ReadAt        *time.Time              `json:"read_at,omitempty"`
}

// CreateNotificationInput defines attributes required to persist a notification.
type CreateNotificationInput struct {
	RecipientID   string
	Kind          models.NotificationKind
	Title         string
	Message       string
	ReferenceType string
	ReferenceID   string
	DedupBucket   string
	// DedupKey, when set, is stored under a unique index; a second insert with the same key fails
	// with ErrDuplicateNotification.
	DedupKey  string
	Metadata  map[string]any
	CreatedAt time.Time
}

// ListNotificationsInput defines filters for querying recipient notifications.
type ListNotificationsInput struct {
	RecipientID string
	Limit       int
}

// NotificationList is a page of notifications with the recipient's total unread count.
type NotificationList struct {
	Items       []NotificationDTO `json:"items"`
	UnreadCount int64             `json:"unread_count"`
}

// DedupLookup identifies an alert occasion by its structured reference.
type DedupLookup struct {
	RecipientID   string
	ReferenceType string
	ReferenceID   string
	DedupBucket   string
}

// NotificationOption customises the NotificationService.
type NotificationOption func(*NotificationService)

// WithNotificationClock overrides the clock used for read timestamps and default creation times.
func WithNotificationClock(now func() time.Time) NotificationOption {
	return func(s *NotificationService) {
		if now != nil {
			s.now = now
		}
	}
}

// NotificationService is the notification store. Every query is scoped by recipient.
type NotificationService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(db *gorm.DB, opts ...NotificationOption) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	svc := &NotificationService{db: db, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create appends a new notification for the recipient.
func (s *NotificationService) Create(ctx context.Context, input CreateNotificationInput) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)
	recipientID := strings.TrimSpace(input.RecipientID)
	if recipientID == "" {
		return nil, errors.New("notification service: recipient id is required")
	}
	if !input.Kind.Valid() {
		return nil, fmt.Errorf("notification service: unknown kind %q", input.Kind)
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errors.New("notification service: title is required")
	}

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	notification := models.Notification{
		BaseModel: models.BaseModel{
			CreatedAt: createdAt.UTC(),
			UpdatedAt: createdAt.UTC(),
		},
		RecipientID:   recipientID,
		Kind:          input.Kind,
		Title:         title,
		Message:       strings.TrimSpace(input.Message),
		ReferenceType: optionalString(input.ReferenceType),
		ReferenceID:   optionalString(input.ReferenceID),
		DedupBucket:   optionalString(input.DedupBucket),
		DedupKey:      optionalString(input.DedupKey),
	}

	if input.Metadata != nil {
		data, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("notification service: marshal metadata: %w", err)
		}
		notification.Metadata = datatypes.JSON(data)
	}

	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		if notification.DedupKey != nil && isUniqueConstraintError(err) {
			return nil, ErrDuplicateNotification
		}
		return nil, fmt.Errorf("notification service: create notification: %w", err)
	}

	dto := mapNotification(notification)
	return &dto, nil
}

// ExistsSince reports whether a notification for the same occasion was created at or after since.
func (s *NotificationService) ExistsSince(ctx context.Context, lookup DedupLookup, since time.Time) (bool, error) {
	ctx = ensureContext(ctx)
	recipientID := strings.TrimSpace(lookup.RecipientID)
	if recipientID == "" {
		return false, errors.New("notification service: recipient id is required")
	}

	query := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ?", recipientID).
		Where("created_at >= ?", since.UTC())
	query = whereNullable(query, "reference_type", lookup.ReferenceType)
	query = whereNullable(query, "reference_id", lookup.ReferenceID)
	query = whereNullable(query, "dedup_bucket", lookup.DedupBucket)

	var count int64
	if err := query.Limit(1).Count(&count).Error; err != nil {
		return false, fmt.Errorf("notification service: dedup lookup: %w", err)
	}
	return count > 0, nil
}

// ListForUser returns the most recent notifications for the recipient together with the unread count.
func (s *NotificationService) ListForUser(ctx context.Context, input ListNotificationsInput) (*NotificationList, error) {
	ctx = ensureContext(ctx)
	recipientID := strings.TrimSpace(input.RecipientID)
	if recipientID == "" {
		return nil, errors.New("notification service: recipient id is required")
	}

	limit := input.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}

	var rows []models.Notification
	if err := s.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification service: list notifications: %w", err)
	}

	unread, err := s.CountUnread(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	return &NotificationList{
		Items:       mapNotificationRows(rows),
		UnreadCount: unread,
	}, nil
}

// ListUnread returns every unread notification for the recipient, newest first.
func (s *NotificationService) ListUnread(ctx context.Context, recipientID string) ([]NotificationDTO, error) {
	ctx = ensureContext(ctx)
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		return nil, errors.New("notification service: recipient id is required")
	}

	var rows []models.Notification
	if err := s.db.WithContext(ctx).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification service: list unread: %w", err)
	}
	return mapNotificationRows(rows), nil
}

// CountUnread returns the number of unread notifications for the recipient.
func (s *NotificationService) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	ctx = ensureContext(ctx)
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("notification service: count unread: %w", err)
	}
	return count, nil
}

// MarkRead sets the read flag on a notification owned by the recipient. Marking an already read
// notification succeeds without changes; a notification owned by someone else is reported as not found.
func (s *NotificationService) MarkRead(ctx context.Context, recipientID, notificationID string) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)
	recipientID = strings.TrimSpace(recipientID)
	notificationID = strings.TrimSpace(notificationID)
	if recipientID == "" || notificationID == "" {
		return nil, apperrors.ErrNotFound
	}

	var notification models.Notification
	if err := s.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", notificationID, recipientID).
		First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("notification service: load notification: %w", err)
	}

	if notification.IsRead {
		dto := mapNotification(notification)
		return &dto, nil
	}

	now := s.now().UTC()
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", notification.ID, recipientID).
		Updates(map[string]any{
			"is_read": true,
			"read_at": now,
		}).Error; err != nil {
		return nil, fmt.Errorf("notification service: mark read: %w", err)
	}

	notification.IsRead = true
	notification.ReadAt = &now
	dto := mapNotification(notification)
	return &dto, nil
}

// MarkAllRead marks all unread notifications for the recipient as read and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	ctx = ensureContext(ctx)
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		return 0, errors.New("notification service: recipient id is required")
	}

	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Updates(map[string]any{
			"is_read": true,
			"read_at": s.now().UTC(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: mark all read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func whereNullable(query *gorm.DB, column, value string) *gorm.DB {
	value = strings.TrimSpace(value)
	if value == "" {
		return query.Where(column + " IS NULL")
	}
	return query.Where(column+" = ?", value)
}

func mapNotificationRows(rows []models.Notification) []NotificationDTO {
	items := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapNotification(row))
	}
	return items
}

func mapNotification(row models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:            row.ID,
		RecipientID:   row.RecipientID,
		Kind:          row.Kind,
		Title:         row.Title,
		Message:       row.Message,
		ReferenceType: derefString(row.ReferenceType),
		ReferenceID:   derefString(row.ReferenceID),
		DedupBucket:   derefString(row.DedupBucket),
		Metadata:      decodeJSON(row.Metadata),
		IsRead:        row.IsRead,
		CreatedAt:     row.CreatedAt,
		ReadAt:        row.ReadAt,
	}
}

func decodeJSON(data datatypes.JSON) map[string]any {
	if len(data) == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
