package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/cabinet/internal/handlers"
)

func registerReminderRoutes(api *gin.RouterGroup, status handlers.StatusProvider) {
	api.GET("/reminders/status", handlers.ReminderStatus(status))
}
