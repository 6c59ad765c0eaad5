package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crishurazvi/avis-diabeto/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"correlation_id": c.GetString(CorrelationIDKey)})
	})
	return r
}

func TestSecurityHeaders(t *testing.T) {
	r := newRouter(SecurityHeaders())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestCorrelationID(t *testing.T) {
	r := newRouter(CorrelationID())

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

		id := w.Header().Get("X-Correlation-ID")
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
		assert.Contains(t, w.Body.String(), id)
	})

	t.Run("propagated", func(t *testing.T) {
		incoming := uuid.New().String()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Correlation-ID", incoming)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, incoming, w.Header().Get("X-Correlation-ID"))
	})

	t.Run("malformed replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Correlation-ID", "<script>")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.NotEqual(t, "<script>", w.Header().Get("X-Correlation-ID"))
	})
}

func TestRequestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(CorrelationID(), RequestTimeout(10*time.Millisecond))
	r.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	r.GET("/fast", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, w.Body.String(), domain.ErrCodeTimeout)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fast", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAuditLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	r := newRouter(CorrelationID(), AuditLogger(logger))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("User-Agent", "avis-test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	line := buf.String()
	assert.Contains(t, line, `"path":"/ping"`)
	assert.Contains(t, line, `"status":200`)
	assert.Contains(t, line, `"user_agent":"avis-test"`)
	assert.Contains(t, line, w.Header().Get("X-Correlation-ID"))
	assert.Contains(t, line, "Request completed")
}

func TestRateLimiter(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	t.Run("burst then reject", func(t *testing.T) {
		rl := NewRateLimiter(domain.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 2}, logger)
		r := newRouter(rl.Middleware())

		codes := make([]int, 0, 3)
		for i := 0; i < 3; i++ {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
			codes = append(codes, w.Code)
			if w.Code == http.StatusTooManyRequests {
				assert.True(t, strings.Contains(w.Body.String(), domain.ErrCodeRateLimit))
				assert.Equal(t, "1", w.Header().Get("Retry-After"))
			}
		}
		assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	})

	t.Run("clients are independent", func(t *testing.T) {
		rl := NewRateLimiter(domain.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 1}, logger)

		assert.True(t, rl.Allow("10.0.0.1"))
		assert.False(t, rl.Allow("10.0.0.1"))
		assert.True(t, rl.Allow("10.0.0.2"))
		assert.Equal(t, 2, rl.Clients())
	})

	t.Run("idle clients cleaned up", func(t *testing.T) {
		rl := NewRateLimiter(domain.RateLimitConfig{Enabled: true, RequestsPerSecond: 1, Burst: 1}, logger)
		now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		rl.now = func() time.Time { return now }

		require.True(t, rl.Allow("10.0.0.1"))
		now = now.Add(5 * time.Minute)
		require.True(t, rl.Allow("10.0.0.2"))
		now = now.Add(6 * time.Minute)

		assert.Equal(t, 1, rl.Cleanup())
		assert.Equal(t, 1, rl.Clients())
	})
}
