package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	LogFormat          string
	LogLevel           string
	CORSAllowedOrigins []string

	EntityCacheTTL        time.Duration
	ResultCacheTTL        time.Duration
	ResultCacheMaxEntries int
	CacheSweepInterval    time.Duration

	RateLimitWindow time.Duration
	RateLimitMax    int
	GlobalRateLimit string

	AuditEnabled bool
	AuditLogPath string

	SlowRequestThreshold time.Duration
	HeapWarnBytes        uint64

	MetricsEnabled   bool
	MetricsNamespace string
	TracingEnabled   bool
	TracingEndpoint  string
	TracingSampling  float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		LogFormat:          valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:           valueOrDefault(k.String("LOG_LEVEL"), "info"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		EntityCacheTTL:        parseDuration(k.String("ENTITY_CACHE_TTL"), "5m"),
		ResultCacheTTL:        parseDuration(k.String("RESULT_CACHE_TTL"), "10m"),
		ResultCacheMaxEntries: parseInt(k.String("RESULT_CACHE_MAX_ENTRIES"), 1000),
		CacheSweepInterval:    parseDuration(k.String("CACHE_SWEEP_INTERVAL"), "1m"),

		RateLimitWindow: parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:    parseInt(k.String("RATE_LIMIT_MAX"), 100),
		GlobalRateLimit: valueOrDefault(k.String("GLOBAL_RATE_LIMIT"), "600-M"),

		AuditEnabled: parseBool(k.String("AUDIT_ENABLED"), true),
		AuditLogPath: valueOrDefault(k.String("AUDIT_LOG_PATH"), "audit.csv"),

		SlowRequestThreshold: parseDuration(k.String("SLOW_REQUEST_THRESHOLD"), "2s"),
		HeapWarnBytes:        uint64(parseInt(k.String("HEAP_WARN_MB"), 512)) * 1024 * 1024,

		MetricsEnabled:   parseBool(k.String("METRICS_ENABLED"), true),
		MetricsNamespace: valueOrDefault(k.String("METRICS_NAMESPACE"), "crm"),
		TracingEnabled:   parseBool(k.String("TRACING_ENABLED"), false),
		TracingEndpoint:  k.String("OTLP_ENDPOINT"),
		TracingSampling:  parseFloat(k.String("TRACING_SAMPLING_RATIO"), 1.0),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBool(value string, fallback bool) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return fallback
	}
	return parsed
}
