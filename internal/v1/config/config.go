package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultPort is the listen port when PORT is not set.
const DefaultPort = "5000"

// Config holds validated environment configuration
type Config struct {
	// Server
	Port           string
	GoEnv          string
	LogLevel       string
	AllowedOrigins []string

	// Room lifecycle
	DataDir            string
	CleanupGracePeriod time.Duration
	CursorThrottle     time.Duration

	// Rate Limits
	RateLimitAPIGlobal string
	RateLimitAPIPublic string

	// Tracing (optional, enabled when endpoint set)
	OTLPEndpoint string

	DevelopmentMode bool
}

// Load validates all environment variables and returns a Config object.
// Returns an error if PORT, ROOM_CLEANUP_GRACE or CURSOR_THROTTLE_MS is
// present but invalid; other variables are taken as given (rate limit formats
// are checked later by the rate limiter). Absent variables fall back to
// defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []string

	// PORT (optional, default 5000)
	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		cfg.Port = DefaultPort
	} else {
		port, err := strconv.Atoi(cfg.Port)
		if err != nil || port < 1 || port > 65535 {
			errs = append(errs, fmt.Sprintf("PORT must be a valid port number between 1 and 65535 (got '%s')", cfg.Port))
		}
	}

	// GO_ENV (defaults to "production")
	cfg.GoEnv = os.Getenv("GO_ENV")
	if cfg.GoEnv == "" {
		cfg.GoEnv = "production"
	}

	// LOG_LEVEL (defaults to "info")
	cfg.LogLevel = os.Getenv("LOG_LEVEL")
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.DevelopmentMode = os.Getenv("DEVELOPMENT_MODE") == "true" || cfg.GoEnv == "development"

	// ALLOWED_ORIGINS (comma separated, defaults to local dev frontend)
	origins := os.Getenv("ALLOWED_ORIGINS")
	if origins == "" {
		cfg.AllowedOrigins = []string{"http://localhost:3000"}
	} else {
		for _, o := range strings.Split(origins, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	}

	// CANVAS_DATA_DIR (defaults to .canvas-data under the working directory)
	cfg.DataDir = os.Getenv("CANVAS_DATA_DIR")
	if cfg.DataDir == "" {
		cfg.DataDir = ".canvas-data"
	}

	// ROOM_CLEANUP_GRACE (defaults to 60s)
	cfg.CleanupGracePeriod = 60 * time.Second
	if raw := os.Getenv("ROOM_CLEANUP_GRACE"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Sprintf("ROOM_CLEANUP_GRACE must be a positive duration (got '%s')", raw))
		} else {
			cfg.CleanupGracePeriod = d
		}
	}

	// CURSOR_THROTTLE_MS (defaults to 35ms)
	cfg.CursorThrottle = 35 * time.Millisecond
	if raw := os.Getenv("CURSOR_THROTTLE_MS"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms <= 0 {
			errs = append(errs, fmt.Sprintf("CURSOR_THROTTLE_MS must be a positive integer (got '%s')", raw))
		} else {
			cfg.CursorThrottle = time.Duration(ms) * time.Millisecond
		}
	}

	// Rate Limits (Defaults: M = Minute, H = Hour)
	cfg.RateLimitAPIGlobal = getEnvOrDefault("RATE_LIMIT_API_GLOBAL", "1000-M")
	cfg.RateLimitAPIPublic = getEnvOrDefault("RATE_LIMIT_API_PUBLIC", "100-M")

	cfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")

	if len(errs) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	logValidatedConfig(cfg)

	return cfg, nil
}

// logValidatedConfig logs the validated configuration
func logValidatedConfig(cfg *Config) {
	slog.Info("✅ Environment configuration validated successfully")
	slog.Info("Configuration",
		"port", cfg.Port,
		"go_env", cfg.GoEnv,
		"log_level", cfg.LogLevel,
		"data_dir", cfg.DataDir,
		"cleanup_grace", cfg.CleanupGracePeriod,
		"cursor_throttle", cfg.CursorThrottle,
		"allowed_origins", strings.Join(cfg.AllowedOrigins, ","),
		"development_mode", cfg.DevelopmentMode,
		"rate_limit_api_global", cfg.RateLimitAPIGlobal,
		"otlp_endpoint", cfg.OTLPEndpoint,
	)
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
