package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Line: LineConfig{
			ChannelToken: "token",
			RateLimit:    10,
		},
		Scheduler: SchedulerConfig{
			Timezone: "Asia/Taipei",
		},
		Reminders: RemindersConfig{
			Intervals: map[string]time.Duration{"P1D": 24 * time.Hour},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing channel token", mutate: func(c *Config) { c.Line.ChannelToken = "" }, wantErr: true},
		{name: "missing timezone", mutate: func(c *Config) { c.Scheduler.Timezone = "" }, wantErr: true},
		{name: "unknown timezone", mutate: func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "zero rate limit", mutate: func(c *Config) { c.Line.RateLimit = 0 }, wantErr: true},
		{name: "no reminder intervals", mutate: func(c *Config) { c.Reminders.Intervals = nil }, wantErr: true},
		{name: "negative reminder interval", mutate: func(c *Config) {
			c.Reminders.Intervals["BAD"] = -time.Hour
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9090
line:
  channel_token: "file-token"
scheduler:
  timezone: "Asia/Tokyo"
  weekly_report_spec: "0 14 * * 5"
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Line.ChannelToken != "file-token" {
		t.Errorf("Line.ChannelToken = %q", cfg.Line.ChannelToken)
	}
	if cfg.Scheduler.Timezone != "Asia/Tokyo" {
		t.Errorf("Scheduler.Timezone = %q", cfg.Scheduler.Timezone)
	}
	if cfg.Scheduler.WeeklyReportSpec != "0 14 * * 5" {
		t.Errorf("WeeklyReportSpec = %q", cfg.Scheduler.WeeklyReportSpec)
	}

	// Untouched keys keep their defaults.
	if cfg.Scheduler.ReminderScanSpec != "0 * * * *" {
		t.Errorf("ReminderScanSpec = %q, want default hourly spec", cfg.Scheduler.ReminderScanSpec)
	}
	if cfg.Database.Path != "data/taskline.db" {
		t.Errorf("Database.Path = %q, want default", cfg.Database.Path)
	}
	if d := cfg.Reminders.Intervals["P1D"]; d != 24*time.Hour {
		t.Errorf("Reminders.Intervals[P1D] = %v, want 24h", d)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
line:
  channel_token: "file-token"
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("LINE_CHANNEL_TOKEN", "env-token")
	t.Setenv("DATABASE_PATH", "/var/lib/taskline.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Line.ChannelToken != "env-token" {
		t.Errorf("Line.ChannelToken = %q, want env override", cfg.Line.ChannelToken)
	}
	if cfg.Database.Path != "/var/lib/taskline.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
}
