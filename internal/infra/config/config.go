package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the engine.
type AppConfig struct {
	DatabaseURL string
	LogLevel    string
	Environment string

	// CronSpecGeneration drives the scheduled generation job. The job always
	// targets the next calendar month, so the default fires a few days
	// before the month begins.
	CronSpecGeneration string
	// CronSpecOverdueSweep drives the daily sweep that flags open rows past
	// their deadline.
	CronSpecOverdueSweep string

	// MetricsAddr is the listen address for the Prometheus endpoint of the
	// schedule daemon. Empty disables the listener.
	MetricsAddr string

	// SMTP settings for the run report. An empty SMTPAddr disables sending;
	// report delivery is best-effort either way.
	SMTPAddr         string // host:port
	SMTPFrom         string
	ReportRecipients []string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't
	// exist, and existing env variables are never overridden.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.CronSpecGeneration = os.Getenv("CRON_SPEC_GENERATION")
	if cfg.CronSpecGeneration == "" {
		cfg.CronSpecGeneration = "0 6 25 * *" // Default: 06:00 on the 25th, next month prepared early
	}

	cfg.CronSpecOverdueSweep = os.Getenv("CRON_SPEC_OVERDUE_SWEEP")
	if cfg.CronSpecOverdueSweep == "" {
		cfg.CronSpecOverdueSweep = "0 2 * * *" // Default: 02:00 daily
	}

	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	cfg.SMTPAddr = os.Getenv("SMTP_ADDR")
	cfg.SMTPFrom = os.Getenv("SMTP_FROM")
	if cfg.SMTPFrom == "" {
		cfg.SMTPFrom = "obligations@localhost"
	}
	if recipients := os.Getenv("REPORT_RECIPIENTS"); recipients != "" {
		for _, r := range strings.Split(recipients, ",") {
			if r = strings.TrimSpace(r); r != "" {
				cfg.ReportRecipients = append(cfg.ReportRecipients, r)
			}
		}
	}
	if cfg.SMTPAddr != "" && len(cfg.ReportRecipients) == 0 {
		return nil, fmt.Errorf("SMTP_ADDR is set but REPORT_RECIPIENTS is empty")
	}

	return cfg, nil
}
