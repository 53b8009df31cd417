package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DatabaseURL          string
	HTTPPort             string
	QuoteURL             string
	QuoteTimeout         time.Duration
	QuoteRetryMax        int
	QuoteRetryBaseDelay  time.Duration
	QuoteCacheTTL        time.Duration
	RefreshConcurrency   int
	RefreshSchedule      string
	AuditLogPath         string
	AdminAPIKey          string
	CORSOrigins          []string
	SheetsSpreadsheetID  string
	GoogleCredentialJSON string
	LogLevel             slog.Level
	LogFormat            string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first when present; real
// environment variables take precedence over it.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		DatabaseURL:          envOrDefault("DATABASE_URL", "sqlite:portfolio.db"),
		HTTPPort:             envOrDefault("HTTP_PORT", "8080"),
		QuoteURL:             envOrDefault("QUOTE_URL", "https://query1.finance.yahoo.com"),
		QuoteTimeout:         envOrDefaultPositiveDuration("QUOTE_TIMEOUT", 10*time.Second),
		QuoteRetryMax:        envOrDefaultInt("QUOTE_RETRY_MAX", 3),
		QuoteRetryBaseDelay:  envOrDefaultDuration("QUOTE_RETRY_BASE_DELAY", 1*time.Second),
		QuoteCacheTTL:        envOrDefaultDuration("QUOTE_CACHE_TTL", 30*time.Second),
		RefreshConcurrency:   envOrDefaultInt("REFRESH_CONCURRENCY", 4),
		RefreshSchedule:      os.Getenv("REFRESH_SCHEDULE"),
		AuditLogPath:         envOrDefault("AUDIT_LOG", "portfolio_audit.log"),
		AdminAPIKey:          os.Getenv("ADMIN_API_KEY"),
		CORSOrigins:          envOrDefaultList("CORS_ORIGINS", []string{"*"}),
		SheetsSpreadsheetID:  os.Getenv("SHEETS_SPREADSHEET_ID"),
		GoogleCredentialJSON: os.Getenv("GOOGLE_CREDENTIALS_JSON"),
		LogLevel:             envOrDefaultLevel("LOG_LEVEL", slog.LevelInfo),
		LogFormat:            envOrDefault("LOG_FORMAT", "text"),
	}
}

// SheetsEnabled reports whether Google Sheets export is configured.
func (c Config) SheetsEnabled() bool {
	return c.SheetsSpreadsheetID != "" && c.GoogleCredentialJSON != ""
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

func envOrDefaultPositiveDuration(key string, defaultVal time.Duration) time.Duration {
	d := envOrDefaultDuration(key, defaultVal)
	if d <= 0 {
		slog.Warn("non-positive duration env var, using default", "key", key, "value", d, "default", defaultVal)
		return defaultVal
	}
	return d
}

func envOrDefaultList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

func envOrDefaultLevel(key string, defaultVal slog.Level) slog.Level {
	if v := os.Getenv(key); v != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(v)); err != nil {
			slog.Warn("invalid log level env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return level
	}
	return defaultVal
}
