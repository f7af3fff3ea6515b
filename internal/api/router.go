package api

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"github.com/Kamol774/pdf-text-extrator/internal/auth"
)

// RouterConfig holds the middleware settings of the API router
type RouterConfig struct {
	CORSOrigins       []string
	MaxConcurrentRuns int64
	RateLimitEvery    time.Duration
	RateLimitBurst    int
	// JWTManager enables bearer authentication on /api when set.
	JWTManager *auth.JWTManager
}

// NewRouter sets up the API router
func NewRouter(cfg RouterConfig, handler *Handler, logger *slog.Logger) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(logger))

	allowAll := len(cfg.CORSOrigins) == 0 || (len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*")
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if allowAll {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSOrigins
		corsCfg.AllowCredentials = true
	}
	router.Use(cors.New(corsCfg))

	maxRuns := cfg.MaxConcurrentRuns
	if maxRuns <= 0 {
		maxRuns = 8
	}
	runs := semaphore.NewWeighted(maxRuns)
	limiters := NewIPLimiters(cfg.RateLimitEvery, cfg.RateLimitBurst)

	// Public routes
	router.GET("/health", handler.HealthCheck)

	apiGroup := router.Group("/api")
	if cfg.JWTManager != nil {
		apiGroup.Use(AuthMiddleware(cfg.JWTManager))
	}
	apiGroup.Use(RateLimitMiddleware(limiters))
	{
		apiGroup.POST("/extract", ConcurrencyMiddleware(runs), handler.ExtractUpload)
		apiGroup.POST("/extract/url", ConcurrencyMiddleware(runs), handler.ExtractURL)
		apiGroup.POST("/download", handler.Download)
		apiGroup.POST("/export", handler.Export)
	}

	return router
}
