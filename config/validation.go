package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConfigRequirements defines required configuration for each environment
type ConfigRequirements struct {
	RequireDBPassword bool
	RequireJWTSecret  bool
	RequireCronSecret bool
	RequireRedis      bool
}

var (
	// Environment-specific requirements
	requirements = map[Environment]ConfigRequirements{
		Development: {},
		Test:        {},
		CI: {
			RequireDBPassword: true,
			RequireJWTSecret:  true,
		},
		Production: {
			RequireDBPassword: true,
			RequireJWTSecret:  true,
			RequireCronSecret: true,
			RequireRedis:      true,
		},
	}
)

// ValidateConfig checks if the configuration meets the requirements for the current environment
func ValidateConfig(cfg *Config) error {
	env := GetEnvironment()
	reqs := requirements[env]

	var errs []ValidationError

	switch cfg.DBDriver {
	case "postgres":
		if reqs.RequireDBPassword && cfg.DBPassword == "" {
			errs = append(errs, ValidationError{"DB_PASSWORD", "required in " + string(env)})
		}
	case "sqlite":
		if cfg.SQLitePath == "" {
			errs = append(errs, ValidationError{"SQLITE_PATH", "required when DB_DRIVER=sqlite"})
		}
	default:
		errs = append(errs, ValidationError{"DB_DRIVER", fmt.Sprintf("unsupported driver %q", cfg.DBDriver)})
	}

	if reqs.RequireJWTSecret && cfg.JWTSecret == "" {
		errs = append(errs, ValidationError{"JWT_SECRET", "required in " + string(env)})
	}
	if reqs.RequireCronSecret && cfg.CronSecret == "" {
		errs = append(errs, ValidationError{"CRON_SECRET", "required in " + string(env)})
	}
	if reqs.RequireRedis && !cfg.RedisConfigured() {
		errs = append(errs, ValidationError{"REDIS_URL", "required in " + string(env)})
	}

	switch cfg.EmailProvider {
	case "log":
	case "smtp":
		if cfg.SMTPHost == "" || cfg.SMTPPort == "" {
			errs = append(errs, ValidationError{"SMTP_HOST", "SMTP_HOST and SMTP_PORT are required for the smtp provider"})
		}
	case "resend":
		if cfg.ResendAPIKey == "" {
			errs = append(errs, ValidationError{"RESEND_API_KEY", "required for the resend provider"})
		}
	default:
		errs = append(errs, ValidationError{"EMAIL_PROVIDER", fmt.Sprintf("unknown provider %q", cfg.EmailProvider)})
	}

	if cfg.SchedulerEnabled {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(cfg.DailyCron); err != nil {
			errs = append(errs, ValidationError{"DAILY_CRON", err.Error()})
		}
		if _, err := parser.Parse(cfg.WeeklyCron); err != nil {
			errs = append(errs, ValidationError{"WEEKLY_CRON", err.Error()})
		}
	}

	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(msgs, "\n"))
	}

	return nil
}
