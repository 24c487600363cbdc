package config_test

import (
	"testing"

	"obligation_engine/internal/infra/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsApplied(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/obligations_test")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("CRON_SPEC_GENERATION", "")
	t.Setenv("CRON_SPEC_OVERDUE_SWEEP", "")
	t.Setenv("SMTP_ADDR", "")
	t.Setenv("SMTP_FROM", "")
	t.Setenv("REPORT_RECIPIENTS", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "0 6 25 * *", cfg.CronSpecGeneration)
	assert.Equal(t, "0 2 * * *", cfg.CronSpecOverdueSweep)
	assert.Equal(t, "obligations@localhost", cfg.SMTPFrom)
	assert.Empty(t, cfg.ReportRecipients)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_RecipientsParsedAndTrimmed(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/obligations_test")
	t.Setenv("SMTP_ADDR", "mail.example.test:587")
	t.Setenv("REPORT_RECIPIENTS", " maria@example.test, , nikos@example.test ")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"maria@example.test", "nikos@example.test"}, cfg.ReportRecipients)
}

func TestLoad_SMTPRequiresRecipients(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/obligations_test")
	t.Setenv("SMTP_ADDR", "mail.example.test:587")
	t.Setenv("REPORT_RECIPIENTS", "")

	_, err := config.Load()
	assert.Error(t, err)
}
