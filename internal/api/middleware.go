package api

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/Kamol774/pdf-text-extrator/internal/auth"
)

const requestIDHeader = "X-Request-ID"

// RequestIDMiddleware propagates or assigns a request ID
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set("requestId", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// LoggerMiddleware creates a custom logging middleware
func LoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		attrs := []any{
			"requestId", c.GetString("requestId"),
			"clientIp", c.ClientIP(),
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}
		logger.Info("request", attrs...)
	}
}

// AuthMiddleware requires a valid bearer token signed by jwtManager
func AuthMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing access token", "code": "unauthorized"})
			return
		}

		claims, err := jwtManager.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid access token", "code": "unauthorized"})
			return
		}

		c.Set("clientId", claims.ClientID)
		c.Next()
	}
}

// ConcurrencyMiddleware caps the number of extraction runs in flight. A
// waiting request gives up when its context ends.
func ConcurrencyMiddleware(sem *semaphore.Weighted) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := sem.Acquire(c.Request.Context(), 1); err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Service at capacity", "code": "capacity"})
			return
		}
		defer sem.Release(1)
		c.Next()
	}
}

// RateLimitMiddleware applies a token bucket per client IP
func RateLimitMiddleware(limiters *IPLimiters) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiters.Get(c.ClientIP()).Allow() {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded", "code": "rate_limit"})
			return
		}
		c.Next()
	}
}

// IPLimiters holds one rate limiter per client IP. Entries idle for longer
// than idleTTL are dropped.
type IPLimiters struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	every     time.Duration
	burst     int
	idleTTL   time.Duration
	lastPrune time.Time
	now       func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPLimiters allows one event per every with the given burst.
func NewIPLimiters(every time.Duration, burst int) *IPLimiters {
	if every <= 0 {
		every = 600 * time.Millisecond
	}
	if burst <= 0 {
		burst = 20
	}
	return &IPLimiters{
		visitors: make(map[string]*visitor),
		every:    every,
		burst:    burst,
		idleTTL:  10 * time.Minute,
		now:      time.Now,
	}
}

// Get returns the limiter for ip, creating it on first use.
func (l *IPLimiters) Get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastPrune) > time.Minute {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.idleTTL {
				delete(l.visitors, k)
			}
		}
		l.lastPrune = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Every(l.every), l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}
