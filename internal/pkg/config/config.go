package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"lecturealarm/internal/domain/schedule"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration.
// Defaults are overlaid by the optional YAML file named in CONFIG_FILE, and
// environment variables (including those autoloaded from .env) win over both.
type Config struct {
	Port     int    `yaml:"port"`
	DBPath   string `yaml:"db_path"`
	Timezone string `yaml:"timezone"`

	// LINE credentials are read from the environment only.
	ChannelSecret      string `yaml:"-"`
	ChannelAccessToken string `yaml:"-"`
	AdminUserID        string `yaml:"admin_user_id"`

	// DefaultLeadMinutes seeds the lead offsets of newly created users.
	DefaultLeadMinutes []int `yaml:"default_lead_minutes"`

	// WindowStart/WindowEnd bound the lecture times accepted by the API.
	// Both empty disables the check.
	WindowStart string `yaml:"window_start"`
	WindowEnd   string `yaml:"window_end"`

	MetricsEnabled bool   `yaml:"metrics_enabled"`
	MetricsPath    string `yaml:"metrics_path"`

	LogLevel string `yaml:"log_level"`
	SQLDebug bool   `yaml:"sql_debug"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:               8080,
		DBPath:             "lecturealarm.db",
		Timezone:           "Africa/Cairo",
		DefaultLeadMinutes: []int{10},
		WindowStart:        "07:00",
		WindowEnd:          "20:00",
		MetricsEnabled:     true,
		MetricsPath:        "/metrics",
		LogLevel:           "info",
	}
}

// Load builds the configuration from defaults, the YAML file and the environment.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid PORT %q: %w", v, err)
		}
		c.Port = port
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("TIMEZONE"); v != "" {
		c.Timezone = v
	}
	c.ChannelSecret = os.Getenv("CHANNEL_SECRET")
	c.ChannelAccessToken = os.Getenv("CHANNEL_ACCESS_TOKEN")
	if v := os.Getenv("ADMIN_USER_ID"); v != "" {
		c.AdminUserID = v
	}
	if v := os.Getenv("DEFAULT_LEAD_MINUTES"); v != "" {
		offsets, err := ParseOffsets(v)
		if err != nil {
			return fmt.Errorf("config: invalid DEFAULT_LEAD_MINUTES: %w", err)
		}
		c.DefaultLeadMinutes = offsets
	}
	if v, ok := os.LookupEnv("WINDOW_START"); ok {
		c.WindowStart = v
	}
	if v, ok := os.LookupEnv("WINDOW_END"); ok {
		c.WindowEnd = v
	}
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		c.MetricsEnabled = v == "true"
	}
	if v := os.Getenv("METRICS_PATH"); v != "" {
		c.MetricsPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("SQL_DEBUG"); v != "" {
		c.SQLDebug = v == "true"
	}
	return nil
}

// ParseOffsets parses a comma separated list of non-negative minute offsets.
func ParseOffsets(s string) ([]int, error) {
	var offsets []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("offset %q is not an integer", part)
		}
		if n < 0 {
			return nil, fmt.Errorf("offset %d is negative", n)
		}
		offsets = append(offsets, n)
	}
	return offsets, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH must not be empty"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err))
	}
	if c.ChannelSecret == "" || c.ChannelAccessToken == "" {
		errs = append(errs, errors.New("CHANNEL_SECRET and CHANNEL_ACCESS_TOKEN must be set"))
	}
	for _, n := range c.DefaultLeadMinutes {
		if n < 0 {
			errs = append(errs, fmt.Errorf("default lead minutes must not be negative, got %d", n))
		}
	}
	if (c.WindowStart == "") != (c.WindowEnd == "") {
		errs = append(errs, errors.New("WINDOW_START and WINDOW_END must be set together"))
	} else if c.WindowStart != "" {
		start, err1 := schedule.ParseTimeOfDay(c.WindowStart)
		end, err2 := schedule.ParseTimeOfDay(c.WindowEnd)
		switch {
		case err1 != nil:
			errs = append(errs, fmt.Errorf("WINDOW_START: %w", err1))
		case err2 != nil:
			errs = append(errs, fmt.Errorf("WINDOW_END: %w", err2))
		case start >= end:
			errs = append(errs, fmt.Errorf("WINDOW_START %s must be before WINDOW_END %s", c.WindowStart, c.WindowEnd))
		}
	}
	if c.MetricsEnabled && !strings.HasPrefix(c.MetricsPath, "/") {
		errs = append(errs, fmt.Errorf("METRICS_PATH must start with /, got %q", c.MetricsPath))
	}

	return errors.Join(errs...)
}

// Location resolves Timezone. Call Validate first.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Window returns the operating window, or ok=false when it is disabled.
func (c *Config) Window() (start, end schedule.TimeOfDay, ok bool) {
	if c.WindowStart == "" || c.WindowEnd == "" {
		return 0, 0, false
	}
	start, err1 := schedule.ParseTimeOfDay(c.WindowStart)
	end, err2 := schedule.ParseTimeOfDay(c.WindowEnd)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return start, end, true
}
