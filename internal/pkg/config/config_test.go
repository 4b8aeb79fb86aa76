package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lecturealarm/internal/domain/schedule"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CHANNEL_SECRET", "secret")
	t.Setenv("CHANNEL_ACCESS_TOKEN", "token")
	t.Setenv("TIMEZONE", "UTC")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []int{10}, cfg.DefaultLeadMinutes)
	assert.Equal(t, "/metrics", cfg.MetricsPath)

	start, end, ok := cfg.Window()
	require.True(t, ok)
	assert.Equal(t, schedule.MustParseTimeOfDay("07:00"), start)
	assert.Equal(t, schedule.MustParseTimeOfDay("20:00"), end)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DEFAULT_LEAD_MINUTES", "15, 5,0")
	t.Setenv("WINDOW_START", "")
	t.Setenv("WINDOW_END", "")
	t.Setenv("METRICS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []int{15, 5, 0}, cfg.DefaultLeadMinutes)
	assert.False(t, cfg.MetricsEnabled)
	_, _, ok := cfg.Window()
	assert.False(t, ok)
}

func TestLoad_InvalidPort(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "eighty")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	setRequiredEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "port: 7000\ndb_path: /tmp/alarms.db\ndefault_lead_minutes: [20, 10]\nwindow_start: \"08:00\"\nwindow_end: \"18:00\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DB_PATH", "/var/lib/alarms.db")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "/var/lib/alarms.db", cfg.DBPath)
	assert.Equal(t, []int{20, 10}, cfg.DefaultLeadMinutes)
	assert.Equal(t, "08:00", cfg.WindowStart)
}

func TestLoad_MissingYAMLFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Port = 0
	cfg.Timezone = "Not/AZone"
	cfg.WindowStart = "19:00"
	cfg.WindowEnd = "08:00"
	cfg.MetricsPath = "metrics"

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "PORT")
	assert.Contains(t, msg, "TIMEZONE")
	assert.Contains(t, msg, "CHANNEL_SECRET")
	assert.Contains(t, msg, "WINDOW_START 19:00 must be before")
	assert.Contains(t, msg, "METRICS_PATH")
}

func TestValidate_HalfWindow(t *testing.T) {
	cfg := Default()
	cfg.ChannelSecret, cfg.ChannelAccessToken, cfg.Timezone = "s", "t", "UTC"
	cfg.WindowEnd = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be set together")
}

func TestParseOffsets(t *testing.T) {
	got, err := ParseOffsets("10,5,,0")
	require.NoError(t, err)
	assert.Equal(t, []int{10, 5, 0}, got)

	_, err = ParseOffsets("10,-5")
	assert.Error(t, err)

	_, err = ParseOffsets("ten")
	assert.Error(t, err)
}
