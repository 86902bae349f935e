package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "internship-back-office", cfg.App.Name)
	assert.Equal(t, EnvDevelopment, cfg.App.Environment)
	assert.True(t, cfg.IsDevelopment())

	assert.Equal(t, "108", cfg.Certificate.Prefix)
	assert.Equal(t, 6, cfg.Certificate.SuffixDigits)
	assert.Equal(t, 20, cfg.Certificate.MaxAttempts)
	assert.True(t, cfg.Certificate.AllowFallback)

	assert.Equal(t, 2, cfg.Scheduler.SweepHour)
	assert.Equal(t, 30, cfg.Scheduler.SweepMinute)
	assert.True(t, cfg.Scheduler.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CERTIFICATE_PREFIX", "207")
	t.Setenv("SCHEDULER_SWEEP_HOUR", "4")
	t.Setenv("DB_QUERY_TIMEOUT", "10s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "207", cfg.Certificate.Prefix)
	assert.Equal(t, 4, cfg.Scheduler.SweepHour)
	assert.Equal(t, 10*time.Second, cfg.Database.QueryTimeout)
}

func TestLoad_FileOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	overlay := `
certificate:
  prefix: "555"
  allow_fallback: false
scheduler:
  sweep_hour: 6
mailer:
  from_address: local@example.test
`
	require.NoError(t, os.WriteFile(path, []byte(overlay), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "555", cfg.Certificate.Prefix)
	assert.False(t, cfg.Certificate.AllowFallback)
	assert.Equal(t, 6, cfg.Scheduler.SweepHour)
	assert.Equal(t, "local@example.test", cfg.Mailer.FromAddress)

	// Keys absent from the overlay keep their env-derived defaults.
	assert.Equal(t, 6, cfg.Certificate.SuffixDigits)
	assert.Equal(t, 30, cfg.Scheduler.SweepMinute)
}

func TestLoad_ValidationRejectsBadSweepHour(t *testing.T) {
	t.Setenv("SCHEDULER_SWEEP_HOUR", "25")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCHEDULER_SWEEP_HOUR")
}

func TestLoad_ProductionRequiresServiceURLs(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "RENDERER_BASE_URL")
	assert.Contains(t, err.Error(), "MAILER_BASE_URL")
}
