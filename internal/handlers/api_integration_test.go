package handlers_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/cabinet/internal/app/scheduler"
	"github.com/charlesng35/cabinet/internal/handlers/testutil"
	"github.com/charlesng35/cabinet/internal/models"
	"github.com/charlesng35/cabinet/internal/services"
)

type fixedStatus struct{}

func (fixedStatus) Status() scheduler.Status {
	return scheduler.Status{Enabled: true, Timezone: "Europe/Paris", TriggerTime: "08:00"}
}

func TestNotificationRoutesEndToEnd(t *testing.T) {
	env := testutil.NewEnv(t, fixedStatus{})
	const owner = "0b8f4c5e-7d2a-4c1b-9e3f-5a6b7c8d9e0f"

	created, err := env.Notifications.Create(context.Background(), services.CreateNotificationInput{
		RecipientID:   owner,
		Kind:          models.NotificationKindInvoice,
		Title:         "Facture FAC-2025-001 en retard",
		Message:       "La facture FAC-2025-001 est en retard de 7 jours.",
		ReferenceType: models.ReferenceTypeInvoice,
		ReferenceID:   "inv-1",
		DedupBucket:   "overdue-7",
		CreatedAt:     time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	list := env.Request(http.MethodGet, "/api/notifications", nil, owner)
	require.Equal(t, http.StatusOK, list.Code, list.Body.String())
	listPayload := testutil.DecodeResponse(t, list)
	require.True(t, listPayload.Success)
	require.Equal(t, int64(1), listPayload.Meta.UnreadCount)

	var items []services.NotificationDTO
	testutil.DecodeInto(t, listPayload.Data, &items)
	require.Len(t, items, 1)
	require.Equal(t, "overdue-7", items[0].DedupBucket)

	other := env.Request(http.MethodGet, "/api/notifications/unread", nil, "another-user")
	require.Equal(t, http.StatusOK, other.Code)
	otherPayload := testutil.DecodeResponse(t, other)
	require.Equal(t, int64(0), otherPayload.Meta.UnreadCount)

	forbidden := env.Request(http.MethodPost, "/api/notifications/"+created.ID+"/read", nil, "another-user")
	require.Equal(t, http.StatusNotFound, forbidden.Code)

	read := env.Request(http.MethodPost, "/api/notifications/"+created.ID+"/read", nil, owner)
	require.Equal(t, http.StatusOK, read.Code, read.Body.String())

	unread := env.Request(http.MethodGet, "/api/notifications/unread", nil, owner)
	unreadPayload := testutil.DecodeResponse(t, unread)
	require.Equal(t, int64(0), unreadPayload.Meta.UnreadCount)

	all := env.Request(http.MethodPost, "/api/notifications/read-all", nil, owner)
	require.Equal(t, http.StatusOK, all.Code)
}

func TestRoutesRequireIdentityHeader(t *testing.T) {
	env := testutil.NewEnv(t, nil)

	for _, path := range []string{"/api/notifications", "/api/notifications/unread", "/api/reminders/status"} {
		w := env.Request(http.MethodGet, path, nil, "")
		require.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestReminderStatusRoute(t *testing.T) {
	env := testutil.NewEnv(t, fixedStatus{})

	w := env.Request(http.MethodGet, "/api/reminders/status", nil, "ops")
	require.Equal(t, http.StatusOK, w.Code)

	payload := testutil.DecodeResponse(t, w)
	var status scheduler.Status
	testutil.DecodeInto(t, payload.Data, &status)
	require.True(t, status.Enabled)
	require.Equal(t, "Europe/Paris", status.Timezone)
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	env := testutil.NewEnv(t, nil)

	health := env.Request(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, health.Code)

	missing := env.Request(http.MethodGet, "/nope", nil, "")
	require.Equal(t, http.StatusNotFound, missing.Code)
}
