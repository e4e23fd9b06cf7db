package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/cabinet/internal/app/scheduler"
)

type staticStatus struct {
	status scheduler.Status
}

func (s staticStatus) Status() scheduler.Status { return s.status }

func TestReminderStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	last := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	provider := staticStatus{status: scheduler.Status{
		Enabled:       true,
		Timezone:      "Europe/Paris",
		TriggerTime:   "08:00",
		LastSuccessAt: &last,
	}}

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	ReminderStatus(provider)(c)

	require.Equal(t, http.StatusOK, recorder.Code)

	var payload struct {
		Success bool             `json:"success"`
		Data    scheduler.Status `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	require.True(t, payload.Success)
	require.True(t, payload.Data.Enabled)
	require.Equal(t, "08:00", payload.Data.TriggerTime)
	require.NotNil(t, payload.Data.LastSuccessAt)
	require.True(t, last.Equal(*payload.Data.LastSuccessAt))
}

func TestReminderStatusDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	ReminderStatus(nil)(c)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), `"enabled":false`)
}
