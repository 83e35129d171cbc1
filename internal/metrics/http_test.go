package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	provider, err := NewProvider()
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	router := gin.New()
	router.Use(HTTPMetricsMiddleware(provider.MeterProvider(), "keymanager_test"))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	for _, path := range []string{"/health", "/health", "/nope"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	output := scrape(t, provider)
	assertMetricLine(t, output, `keymanager_test_http_requests_total`,
		`method="GET".*path="/health".*status_code="200"`, `2`)
	assertMetricLine(t, output, `keymanager_test_http_requests_total`,
		`method="GET".*path="unknown".*status_code="404"`, `1`)
}

func TestRouteOf(t *testing.T) {
	assert.Equal(t, "unknown", routeOf(""))
	assert.Equal(t, "/metrics", routeOf("/metrics"))
}
