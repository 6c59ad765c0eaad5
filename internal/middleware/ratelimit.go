package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/crishurazvi/avis-diabeto/internal/domain"
)

// clientLimiter tracks the token bucket of one client IP
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out a token bucket per client IP
type RateLimiter struct {
	logger  *logrus.Logger
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

// NewRateLimiter creates a limiter allowing rps requests per second with the given burst.
func NewRateLimiter(config domain.RateLimitConfig, logger *logrus.Logger) *RateLimiter {
	return &RateLimiter{
		logger:  logger,
		limit:   rate.Limit(config.RequestsPerSecond),
		burst:   config.Burst,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
		clients: make(map[string]*clientLimiter),
	}
}

// Allow reports whether the client may issue a request now.
func (rl *RateLimiter) Allow(clientID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cl, ok := rl.clients[clientID]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[clientID] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// Cleanup drops clients idle for longer than the idle TTL and returns how many were removed.
func (rl *RateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idleTTL)
	removed := 0
	for id, cl := range rl.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(rl.clients, id)
			removed++
		}
	}
	return removed
}

// Clients returns the number of tracked clients.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Middleware rejects requests over the client's budget with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if rl.Allow(clientIP) {
			c.Next()
			return
		}

		rl.logger.WithFields(logrus.Fields{
			"client_ip":      clientIP,
			"correlation_id": c.GetString(CorrelationIDKey),
		}).Warn("Rate limit exceeded")

		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, domain.NewAPIError(
			domain.ErrCodeRateLimit, "Too many requests", "", c.GetString(CorrelationIDKey)))
	}
}
