package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/gin-gonic/gin"

	"github.com/Kamol774/pdf-text-extrator/internal/api"
	"github.com/Kamol774/pdf-text-extrator/internal/auth"
	"github.com/Kamol774/pdf-text-extrator/internal/config"
	"github.com/Kamol774/pdf-text-extrator/internal/document"
	"github.com/Kamol774/pdf-text-extrator/internal/document/extractor"
	"github.com/Kamol774/pdf-text-extrator/internal/export"
	"github.com/Kamol774/pdf-text-extrator/internal/fetch"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exporter, closeExporter, err := newExporter(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize exporter", "error", err)
		os.Exit(1)
	}
	defer closeExporter()

	processor := document.NewProcessor(extractor.NewPDFParser(), cfg.MaxPDFBytes, logger)
	fetcher := fetch.NewFetcher(cfg.FetchTimeout, cfg.MaxPDFBytes)
	handler := api.NewHandler(processor, fetcher, exporter, logger, cfg.ExtractTimeout)

	var jwtManager *auth.JWTManager
	if cfg.JWTSecret != "" {
		jwtManager = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	} else {
		logger.Warn("JWT_SECRET not set; /api routes are unauthenticated")
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.RouterConfig{
		CORSOrigins:       cfg.CORSOrigins,
		MaxConcurrentRuns: cfg.MaxConcurrentRuns,
		RateLimitEvery:    cfg.RateLimitEvery,
		RateLimitBurst:    cfg.RateLimitBurst,
		JWTManager:        jwtManager,
	}, handler, logger)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting",
		"addr", server.Addr,
		"maxPdfBytes", cfg.MaxPDFBytes,
		"maxConcurrentRuns", cfg.MaxConcurrentRuns,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// newExporter selects the export backend from cfg. A nil exporter disables
// the export endpoint.
func newExporter(ctx context.Context, cfg config.Config) (export.Exporter, func(), error) {
	switch {
	case cfg.ExportBucket != "":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, err
		}
		return export.NewGCSExporter(client, cfg.ExportBucket, cfg.ExportPrefix), func() { _ = client.Close() }, nil
	case cfg.ExportDir != "":
		exp, err := export.NewDirExporter(cfg.ExportDir)
		if err != nil {
			return nil, nil, err
		}
		return exp, func() {}, nil
	default:
		return nil, func() {}, nil
	}
}
