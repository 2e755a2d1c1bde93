package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultUserAgent is a realistic desktop browser identity sent with every fetch.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config holds the whole service configuration.
type Config struct {
	Server   ServerConfig
	Scraper  ScraperConfig
	Checker  CheckerConfig
	Store    StoreConfig
	Redis    RedisConfig
	SMTP     SMTPConfig
	LogLevel slog.Level
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Host               string
	Port               string
	AllowedOrigins     []string
	RateLimitPerSecond float64
}

// ScraperConfig holds fetch settings
type ScraperConfig struct {
	UserAgent    string
	FetchTimeout time.Duration
}

// CheckerConfig holds recheck pipeline and schedule settings
type CheckerConfig struct {
	Workers      int
	PerHostLimit int
	BatchTimeout time.Duration
	Schedule     string
	RunOnStart   bool
}

// StoreConfig selects and configures the tracked-item store
type StoreConfig struct {
	Driver      string
	DataFile    string
	DatabaseURL string
}

// RedisConfig configures the optional snapshot cache
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Enabled reports whether a Redis address was configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// SMTPConfig configures the price-drop mailer
type SMTPConfig struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

// IsValid reports whether enough SMTP settings are present to send mail.
func (c SMTPConfig) IsValid() bool {
	return c.Host != "" && c.User != "" && c.Pass != ""
}

// Load reads a .env file when present and builds the configuration from the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() (*Config, error) {
	smtpUser := os.Getenv("SMTP_USER")

	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("HOST", "0.0.0.0"),
			Port:               getEnv("PORT", "8000"),
			AllowedOrigins:     splitList(getEnv("ALLOWED_ORIGINS", "*")),
			RateLimitPerSecond: getEnvFloat("RATE_LIMIT_PER_SECOND", 5),
		},
		Scraper: ScraperConfig{
			UserAgent:    getEnv("USER_AGENT", DefaultUserAgent),
			FetchTimeout: getEnvDuration("FETCH_TIMEOUT", 10*time.Second),
		},
		Checker: CheckerConfig{
			Workers:      getEnvInt("CHECK_WORKERS", 4),
			PerHostLimit: getEnvInt("PER_HOST_LIMIT", 2),
			BatchTimeout: getEnvDuration("BATCH_TIMEOUT", 5*time.Minute),
			Schedule:     getEnv("CHECK_SCHEDULE", "0 0 */12 * * *"),
			RunOnStart:   getEnvBool("CHECK_ON_START", false),
		},
		Store: StoreConfig{
			Driver:      strings.ToLower(getEnv("STORE_DRIVER", "file")),
			DataFile:    getEnv("DATA_FILE", "tracked.json"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvDuration("CACHE_TTL", 15*time.Minute),
		},
		SMTP: SMTPConfig{
			Host: os.Getenv("SMTP_HOST"),
			Port: getEnv("SMTP_PORT", "587"),
			User: smtpUser,
			Pass: os.Getenv("SMTP_PASS"),
			From: getEnv("SMTP_FROM", fmt.Sprintf("Price Tracker <%s>", smtpUser)),
		},
		LogLevel: parseLevel(getEnv("LOG_LEVEL", "info")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Address returns the HTTP listen address.
func (c *Config) Address() string {
	return c.Server.Host + ":" + c.Server.Port
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "file":
		if c.Store.DataFile == "" {
			return fmt.Errorf("DATA_FILE must not be empty for the file store")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want file or postgres)", c.Store.Driver)
	}
	if c.Checker.Workers < 1 {
		return fmt.Errorf("CHECK_WORKERS must be at least 1, got %d", c.Checker.Workers)
	}
	if c.Checker.PerHostLimit < 1 {
		return fmt.Errorf("PER_HOST_LIMIT must be at least 1, got %d", c.Checker.PerHostLimit)
	}
	if c.Scraper.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLevel(value string) slog.Level {
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
