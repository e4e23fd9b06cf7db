package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/cabinet/internal/database/testutil"
	"github.com/charlesng35/cabinet/internal/models"
	apperrors "github.com/charlesng35/cabinet/pkg/errors"
)

func newTestNotificationService(t *testing.T, now time.Time) *NotificationService {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewNotificationService(db, WithNotificationClock(func() time.Time { return now }))
	require.NoError(t, err)
	return svc
}

func TestNotificationServiceCreateAndList(t *testing.T) {
	now := time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC)
	svc := newTestNotificationService(t, now)
	ctx := context.Background()

	older, err := svc.Create(ctx, CreateNotificationInput{
		RecipientID: "0b6f7c1e-1111-4c1e-9a55-000000000001",
		Kind:        models.NotificationKindTask,
		Title:       "Tâche du jour",
		Message:     "Déposer les conclusions",
		CreatedAt:   now.Add(-time.Hour),
	})
	require.NoError(t, err)

	newer, err := svc.Create(ctx, CreateNotificationInput{
		RecipientID:   "0b6f7c1e-1111-4c1e-9a55-000000000001",
		Kind:          models.NotificationKindInvoice,
		Title:         "Facture en retard",
		Message:       "FAC-2025-0031",
		ReferenceType: models.ReferenceTypeInvoice,
		ReferenceID:   "inv-1",
		DedupBucket:   "overdue-7",
		Metadata:      map[string]any{"days_overdue": 7},
	})
	require.NoError(t, err)
	require.Equal(t, now, newer.CreatedAt.UTC())
	require.Equal(t, "invoice", newer.ReferenceType)

	list, err := svc.ListForUser(ctx, ListNotificationsInput{RecipientID: "0b6f7c1e-1111-4c1e-9a55-000000000001", Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	require.Equal(t, newer.ID, list.Items[0].ID)
	require.Equal(t, older.ID, list.Items[1].ID)
	require.Equal(t, int64(2), list.UnreadCount)
	require.EqualValues(t, 7, list.Items[0].Metadata["days_overdue"])
}

func TestNotificationServiceCreateValidatesInput(t *testing.T) {
	svc := newTestNotificationService(t, time.Now())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateNotificationInput{Kind: models.NotificationKindTask, Title: "x"})
	require.Error(t, err)

	_, err = svc.Create(ctx, CreateNotificationInput{RecipientID: "u1", Kind: "BOGUS", Title: "x"})
	require.Error(t, err)

	_, err = svc.Create(ctx, CreateNotificationInput{RecipientID: "u1", Kind: models.NotificationKindTask, Title: "  "})
	require.Error(t, err)
}

func TestNotificationServiceDedupKeyFailsClosed(t *testing.T) {
	svc := newTestNotificationService(t, time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()

	input := CreateNotificationInput{
		RecipientID:   "u1",
		Kind:          models.NotificationKindAgenda,
		Title:         "Audience demain",
		ReferenceType: models.ReferenceTypeEvent,
		ReferenceID:   "evt-1",
		DedupBucket:   "T-24h",
		DedupKey:      "u1|event|evt-1|T-24h|2025-03-04",
	}
	_, err := svc.Create(ctx, input)
	require.NoError(t, err)

	_, err = svc.Create(ctx, input)
	require.ErrorIs(t, err, ErrDuplicateNotification)

	// Notifications without a dedup key never collide.
	input.DedupKey = ""
	_, err = svc.Create(ctx, input)
	require.NoError(t, err)
	_, err = svc.Create(ctx, input)
	require.NoError(t, err)
}

func TestNotificationServiceExistsSince(t *testing.T) {
	now := time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC)
	svc := newTestNotificationService(t, now)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateNotificationInput{
		RecipientID:   "u1",
		Kind:          models.NotificationKindInvoice,
		Title:         "Facture en retard",
		ReferenceType: models.ReferenceTypeInvoice,
		ReferenceID:   "inv-1",
		DedupBucket:   "overdue-1",
		CreatedAt:     now.Add(-2 * time.Hour),
	})
	require.NoError(t, err)

	lookup := DedupLookup{RecipientID: "u1", ReferenceType: "invoice", ReferenceID: "inv-1", DedupBucket: "overdue-1"}

	found, err := svc.ExistsSince(ctx, lookup, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.True(t, found)

	found, err = svc.ExistsSince(ctx, lookup, now.Add(-time.Hour))
	require.NoError(t, err)
	require.False(t, found, "created before the window start")

	other := lookup
	other.DedupBucket = "overdue-7"
	found, err = svc.ExistsSince(ctx, other, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.False(t, found, "different bucket must not match")

	stranger := lookup
	stranger.RecipientID = "u2"
	found, err = svc.ExistsSince(ctx, stranger, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.False(t, found, "lookups are scoped by recipient")
}

func TestNotificationServiceMarkRead(t *testing.T) {
	now := time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC)
	svc := newTestNotificationService(t, now)
	ctx := context.Background()

	dto, err := svc.Create(ctx, CreateNotificationInput{
		RecipientID: "owner",
		Kind:        models.NotificationKindAgenda,
		Title:       "Audience demain",
	})
	require.NoError(t, err)

	read, err := svc.MarkRead(ctx, "owner", dto.ID)
	require.NoError(t, err)
	require.True(t, read.IsRead)
	require.NotNil(t, read.ReadAt)

	again, err := svc.MarkRead(ctx, "owner", dto.ID)
	require.NoError(t, err, "marking twice is a no-op")
	require.True(t, again.IsRead)

	_, err = svc.MarkRead(ctx, "intruder", dto.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.MarkRead(ctx, "owner", "missing")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestNotificationServiceMarkAllReadIsScoped(t *testing.T) {
	svc := newTestNotificationService(t, time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for _, recipient := range []string{"alice", "alice", "bob"} {
		_, err := svc.Create(ctx, CreateNotificationInput{
			RecipientID: recipient,
			Kind:        models.NotificationKindTask,
			Title:       "Tâche du jour",
		})
		require.NoError(t, err)
	}

	updated, err := svc.MarkAllRead(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(2), updated)

	unread, err := svc.ListUnread(ctx, "alice")
	require.NoError(t, err)
	require.Empty(t, unread)

	bobUnread, err := svc.ListUnread(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, bobUnread, 1)

	count, err := svc.CountUnread(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}
