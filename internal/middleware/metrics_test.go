package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/cabinet/pkg/metrics"
)

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())
	r.POST("/api/notifications/:id/read", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	before := testutil.CollectAndCount(metrics.APILatency)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/notifications/abc/read", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	require.Equal(t, before+1, testutil.CollectAndCount(metrics.APILatency))
}

func TestMetricsMiddlewareCollapsesUnknownRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())
	r.NoRoute(NotFoundHandler)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/first-unknown", nil))
	before := testutil.CollectAndCount(metrics.APILatency)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/second-unknown", nil))
	require.Equal(t, before, testutil.CollectAndCount(metrics.APILatency))
}
