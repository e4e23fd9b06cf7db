package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	appErrors "github.com/charlesng35/cabinet/pkg/errors"
	"github.com/charlesng35/cabinet/pkg/response"
)

const healthPingTimeout = 2 * time.Second

// Health returns a readiness payload. When db is set, the database must answer a ping.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			response.Success(c, http.StatusOK, gin.H{"status": "ok"})
			return
		}

		sqlDB, err := db.DB()
		if err != nil {
			response.Error(c, appErrors.ErrServiceUnavailable)
			return
		}

		ctx, cancel := contextWithTimeout(c, healthPingTimeout)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			response.Error(c, appErrors.ErrServiceUnavailable)
			return
		}

		response.Success(c, http.StatusOK, gin.H{"status": "ok", "database": "up"})
	}
}
