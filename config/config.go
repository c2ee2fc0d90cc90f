package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort string
	ServerHost string

	// Database configuration
	DBDriver   string // postgres or sqlite
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string

	// Auth
	JWTSecret  string
	CronSecret string

	// Scheduler
	SchedulerEnabled bool
	DailyCron        string
	WeeklyCron       string

	// Notifications
	EmailProvider     string // smtp, resend or log
	SMTPHost          string
	SMTPPort          string
	SMTPUsername      string
	SMTPPassword      string
	ResendAPIKey      string
	EmailFrom         string
	EmailFromName     string
	TeamsWebhookURL   string
	FrontendURL       string
	NotifyConcurrency int
	NotifyRatePerSec  float64

	// Summary exports
	S3BucketName string
	AWSRegion    string
}

const (
	defaultDailyCron  = "0 6 * * *"
	defaultWeeklyCron = "0 5 * * 1"
)

// LoadConfig creates a new Config instance with values from environment variables or secrets
func LoadConfig() (*Config, error) {
	env := GetEnvironment()
	cfg := &Config{}

	switch env {
	case CI:
		loadFromEnv(cfg, false)
	case Development, Test, Production:
		loadFromEnv(cfg, true)
	default:
		return nil, fmt.Errorf("unknown environment: %s", env)
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromEnv fills cfg from environment variables. When useSecrets is set,
// sensitive values fall back to Docker secrets.
func loadFromEnv(cfg *Config, useSecrets bool) {
	get := func(envKey, secretName, fallback string) string {
		if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
			return v
		}
		if useSecrets && secretName != "" {
			if v := readSecret(secretName); v != "" {
				return v
			}
		}
		return fallback
	}

	cfg.ServerPort = get("SERVER_PORT", "server_port", "8080")
	cfg.ServerHost = get("SERVER_HOST", "server_host", "0.0.0.0")

	cfg.DBDriver = get("DB_DRIVER", "", "postgres")
	cfg.DBHost = get("DB_HOST", "db_host", "localhost")
	cfg.DBPort = get("DB_PORT", "db_port", "5432")
	cfg.DBUser = get("DB_USER", "db_user", "postgres")
	cfg.DBPassword = get("DB_PASSWORD", "db_password", "")
	cfg.DBName = get("DB_NAME", "db_name", "clientpulse")
	cfg.DBSSLMode = get("DB_SSL_MODE", "db_ssl_mode", "disable")
	cfg.SQLitePath = get("SQLITE_PATH", "", "clientpulse.db")

	cfg.RedisHost = get("REDIS_HOST", "redis_host", "")
	cfg.RedisPort = get("REDIS_PORT", "redis_port", "6379")
	cfg.RedisPassword = get("REDIS_PASSWORD", "redis_password", "")
	cfg.RedisURL = get("REDIS_URL", "redis_url", "")
	cfg.RedisDB = 0 // This is a constant, not a secret

	cfg.JWTSecret = get("JWT_SECRET", "jwt_secret", "")
	cfg.CronSecret = get("CRON_SECRET", "cron_secret", "")

	cfg.SchedulerEnabled = parseBool(get("SCHEDULER_ENABLED", "", "false"))
	cfg.DailyCron = get("DAILY_CRON", "", defaultDailyCron)
	cfg.WeeklyCron = get("WEEKLY_CRON", "", defaultWeeklyCron)

	cfg.EmailProvider = strings.ToLower(get("EMAIL_PROVIDER", "", "log"))
	cfg.SMTPHost = get("SMTP_HOST", "smtp_host", "")
	cfg.SMTPPort = get("SMTP_PORT", "smtp_port", "")
	cfg.SMTPUsername = get("SMTP_USERNAME", "smtp_username", "")
	cfg.SMTPPassword = get("SMTP_PASSWORD", "smtp_password", "")
	cfg.ResendAPIKey = get("RESEND_API_KEY", "resend_api_key", "")
	cfg.EmailFrom = get("EMAIL_FROM", "email_from", "")
	cfg.EmailFromName = get("EMAIL_FROM_NAME", "email_from_name", "ClientPulse")
	cfg.TeamsWebhookURL = get("TEAMS_WEBHOOK_URL", "teams_webhook_url", "")
	cfg.FrontendURL = get("FRONTEND_URL", "", "http://localhost:5173")
	cfg.NotifyConcurrency = parseInt(get("NOTIFY_CONCURRENCY", "", "4"), 4)
	cfg.NotifyRatePerSec = parseFloat(get("NOTIFY_RATE_PER_SEC", "", "5"), 5)

	cfg.S3BucketName = get("S3_BUCKET_NAME", "", "")
	cfg.AWSRegion = get("AWS_REGION", "", "")
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseFloat(s string, fallback float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}

// RedisConfigured reports whether a redis endpoint was provided.
func (c *Config) RedisConfigured() bool {
	return c.RedisURL != "" || c.RedisHost != ""
}

// UsesSQLite reports whether the sqlite driver is selected.
func (c *Config) UsesSQLite() bool {
	return c.DBDriver == "sqlite"
}
