package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/cabinet/internal/app"
	"github.com/charlesng35/cabinet/internal/handlers"
)

func registerHealthRoutes(r *gin.Engine, db *gorm.DB, cfg *app.Config) {
	if !cfg.Monitoring.Health.Enabled {
		r.GET("/health", disabledHealthHandler)
		return
	}
	r.GET("/health", handlers.Health(db))
}

func disabledHealthHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"status":  "disabled",
	})
}
