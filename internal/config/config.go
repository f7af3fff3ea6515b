package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Kamol774/pdf-text-extrator/internal/document"
)

type Config struct {
	// Server
	Port string

	// Limits
	MaxPDFBytes       int64
	MaxConcurrentRuns int64

	// Server timeouts
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration

	// Request timeouts
	ExtractTimeout time.Duration
	FetchTimeout   time.Duration

	// rate limiting (per IP)
	RateLimitEvery time.Duration
	RateLimitBurst int

	// auth; empty disables bearer checks
	JWTSecret string
	JWTTTL    time.Duration

	// export; at most one of ExportDir and ExportBucket
	ExportDir    string
	ExportBucket string
	ExportPrefix string

	CORSOrigins []string
	LogLevel    slog.Level
}

func Load() Config {
	return Config{
		Port: envStr("PORT", "8080"),

		MaxPDFBytes:       int64(envInt("MAX_PDF_BYTES", int(document.DefaultMaxBytes))),
		MaxConcurrentRuns: int64(envInt("MAX_CONCURRENT_RUNS", 8)),

		ReadHeaderTimeout: envDur("READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:       envDur("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:      envDur("WRITE_TIMEOUT", 120*time.Second),

		ExtractTimeout: envDur("EXTRACT_TIMEOUT", 90*time.Second),
		FetchTimeout:   envDur("FETCH_TIMEOUT", 25*time.Second),

		RateLimitEvery: envDur("RATE_LIMIT_EVERY", 600*time.Millisecond),
		RateLimitBurst: envInt("RATE_LIMIT_BURST", 20),

		JWTSecret: envStr("JWT_SECRET", ""),
		JWTTTL:    envDur("JWT_TTL", 24*time.Hour),

		ExportDir:    envStr("EXPORT_DIR", ""),
		ExportBucket: envStr("EXPORT_BUCKET", ""),
		ExportPrefix: envStr("EXPORT_PREFIX", "extracted"),

		CORSOrigins: envList("CORS_ORIGINS", []string{"*"}),
		LogLevel:    envLevel("LOG_LEVEL", slog.LevelInfo),
	}
}

func (c Config) Validate() error {
	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.ExportDir != "" && c.ExportBucket != "" {
		return fmt.Errorf("EXPORT_DIR and EXPORT_BUCKET are mutually exclusive")
	}
	if c.ExtractTimeout > c.WriteTimeout {
		return fmt.Errorf("EXTRACT_TIMEOUT (%s) must not exceed WRITE_TIMEOUT (%s)", c.ExtractTimeout, c.WriteTimeout)
	}
	return nil
}

func envStr(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envDur(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envList(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func envLevel(key string, fallback slog.Level) slog.Level {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		return fallback
	}
	return lvl
}
