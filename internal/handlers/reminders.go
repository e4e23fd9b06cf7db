package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/cabinet/internal/app/scheduler"
	"github.com/charlesng35/cabinet/pkg/response"
)

// StatusProvider reports the reminder scheduler state.
type StatusProvider interface {
	Status() scheduler.Status
}

// ReminderStatus returns the scheduler state and the last cycle report. A nil provider reports a disabled scheduler.
func ReminderStatus(provider StatusProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		if provider == nil {
			response.Success(c, http.StatusOK, scheduler.Status{Enabled: false})
			return
		}
		response.Success(c, http.StatusOK, provider.Status())
	}
}
