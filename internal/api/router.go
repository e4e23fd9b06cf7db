package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/cabinet/internal/app"
	"github.com/charlesng35/cabinet/internal/handlers"
	"github.com/charlesng35/cabinet/internal/middleware"
	"github.com/charlesng35/cabinet/internal/services"
)

const defaultMetricsEndpoint = "/metrics"

// NewRouter builds the Gin engine, wires middleware and registers the read API.
// status may be nil when the reminder scheduler is disabled.
func NewRouter(db *gorm.DB, cfg *app.Config, notifications *services.NotificationService, status handlers.StatusProvider) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if notifications == nil {
		return nil, fmt.Errorf("notification service must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	registerHealthRoutes(r, db, cfg)

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = defaultMetricsEndpoint
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	notificationHandler, err := handlers.NewNotificationHandler(notifications)
	if err != nil {
		return nil, err
	}

	api := r.Group("/api")
	api.Use(middleware.Identity())

	registerNotificationRoutes(api, notificationHandler)
	registerReminderRoutes(api, status)

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
