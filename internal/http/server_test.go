package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/keymanager/internal/crypto/domain"
	"github.com/allisson/keymanager/internal/metrics"
	"github.com/allisson/keymanager/internal/registry"
)

// TestMain sets Gin to test mode for all tests in this package.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestRegistry(t *testing.T) (*registry.Registry, *cryptoDomain.Key, *cryptoDomain.Key) {
	t.Helper()
	reg := registry.New()
	a := cryptoDomain.RestoreKey("a", "alpha", []byte("secret-a"), cryptoDomain.WithPath("/keys/a.key"))
	b := cryptoDomain.RestoreKey("b", "beta", []byte("secret-b"))
	require.NoError(t, reg.Add(a))
	require.NoError(t, reg.Add(b))
	require.NoError(t, reg.SetCurrent(a))
	b.Expire()
	return reg, a, b
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestServer_Health(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	s := NewServer("127.0.0.1:0", slog.New(slog.DiscardHandler), reg, nil, "", nil)

	w := get(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestServer_Readiness(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ready := false
	s := NewServer("127.0.0.1:0", slog.New(slog.DiscardHandler), reg, nil, "", func() bool { return ready })

	assert.Equal(t, http.StatusServiceUnavailable, get(t, s.Handler(), "/ready").Code)
	ready = true
	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/ready").Code)
}

func TestServer_ListKeys(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	s := NewServer("127.0.0.1:0", slog.New(slog.DiscardHandler), reg, nil, "", nil)

	w := get(t, s.Handler(), "/keys")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret-")

	var resp ListKeysResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "a", resp.Data[0].ID)
	assert.True(t, resp.Data[0].Current)
	assert.False(t, resp.Data[0].TimedOut)
	assert.Equal(t, "/keys/a.key", resp.Data[0].Path)
	assert.Equal(t, "b", resp.Data[1].ID)
	assert.False(t, resp.Data[1].Current)
	assert.True(t, resp.Data[1].TimedOut)

	t.Run("pagination", func(t *testing.T) {
		w := get(t, s.Handler(), "/keys?offset=1&limit=1")
		require.Equal(t, http.StatusOK, w.Code)
		var resp ListKeysResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Total)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, "b", resp.Data[0].ID)
	})

	t.Run("invalid pagination", func(t *testing.T) {
		assert.Equal(t, http.StatusUnprocessableEntity, get(t, s.Handler(), "/keys?limit=0").Code)
	})
}

func TestServer_GetKey(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	s := NewServer("127.0.0.1:0", slog.New(slog.DiscardHandler), reg, nil, "", nil)

	w := get(t, s.Handler(), "/keys/a")
	require.Equal(t, http.StatusOK, w.Code)
	var resp KeyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alpha", resp.Name)

	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/keys/zzz").Code)
}

func TestServer_Metrics(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	provider, err := metrics.NewProvider()
	require.NoError(t, err)

	s := NewServer("127.0.0.1:0", slog.New(slog.DiscardHandler), reg, provider, "keymanager_test", nil)

	get(t, s.Handler(), "/health")
	w := get(t, s.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "keymanager_test_http_requests_total")

	t.Run("no metrics route without provider", func(t *testing.T) {
		s := NewServer("127.0.0.1:0", slog.New(slog.DiscardHandler), reg, nil, "", nil)
		assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/metrics").Code)
	})
}

func TestLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	router := gin.New()
	router.Use(LoggerMiddleware(logger))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	get(t, router, "/ping")
	get(t, router, "/missing")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Equal(t, "DEBUG", first["level"])
	assert.Equal(t, float64(http.StatusNoContent), first["status"])
	assert.Equal(t, "WARN", second["level"])
	assert.Equal(t, "/missing", second["path"])
}

func TestServer_CORS(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	s := NewServer("127.0.0.1:0", slog.New(slog.DiscardHandler), reg, nil, "", nil,
		WithCORS("https://dash.example.com, ,https://other.example.com"))

	t.Run("allowed origin", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "https://dash.example.com")
		s.Handler().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "https://dash.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unknown origin", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		s.Handler().ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestParseOrigins(t *testing.T) {
	assert.Nil(t, parseOrigins(""))
	assert.Equal(t, []string{"a", "b"}, parseOrigins(" a ,, b "))
	assert.Empty(t, parseOrigins(" , "))
}

func TestServer_RateLimit(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	s := NewServer("127.0.0.1:0", slog.New(slog.DiscardHandler), reg, nil, "", nil,
		WithRateLimit(0.001, 2))

	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/health").Code)
	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/health").Code)

	w := get(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
}
