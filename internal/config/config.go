package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Line      LineConfig      `mapstructure:"line"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Reminders RemindersConfig `mapstructure:"reminders"`
	Reports   ReportsConfig   `mapstructure:"reports"`
	Backup    BackupConfig    `mapstructure:"backup"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LineConfig holds LINE Messaging API configuration
type LineConfig struct {
	ChannelToken string        `mapstructure:"channel_token"`
	APIBaseURL   string        `mapstructure:"api_base_url"`
	APITimeout   time.Duration `mapstructure:"api_timeout"`

	// Push messages per second allowed against the platform API.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

// SchedulerConfig holds the job table configuration. Cron specs use standard
// five-field syntax and are evaluated in Timezone.
type SchedulerConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Timezone string `mapstructure:"timezone"`

	ReminderScanSpec      string `mapstructure:"reminder_scan_spec"`
	OverdueScanSpec       string `mapstructure:"overdue_scan_spec"`
	OverdueDigestSpec     string `mapstructure:"overdue_digest_spec"`
	ReviewReminderSpec    string `mapstructure:"review_reminder_spec"`
	IncompleteSummarySpec string `mapstructure:"incomplete_summary_spec"`
	SupervisorWeeklySpec  string `mapstructure:"supervisor_weekly_spec"`
	WeeklyReportSpec      string `mapstructure:"weekly_report_spec"`
	KPIRefreshSpec        string `mapstructure:"kpi_refresh_spec"`
	RecurringTickSpec     string `mapstructure:"recurring_tick_spec"`
	BackupSpec            string `mapstructure:"backup_spec"`
	MembershipCleanupSpec string `mapstructure:"membership_cleanup_spec"`
}

// RemindersConfig holds due-date reminder configuration
type RemindersConfig struct {
	// Intervals before the due time at which a reminder fires, as ISO 8601
	// duration tags mapped to Go durations, e.g. P1D -> 24h.
	Intervals map[string]time.Duration `mapstructure:"intervals"`
}

// ReportsConfig holds weekly report configuration
type ReportsConfig struct {
	ExcelOutputDir string `mapstructure:"excel_output_dir"`
}

// BackupConfig holds database backup configuration
type BackupConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	Keep      int    `mapstructure:"keep"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/taskline.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// LINE defaults
	viper.SetDefault("line.api_base_url", "https://api.line.me")
	viper.SetDefault("line.api_timeout", 10*time.Second)
	viper.SetDefault("line.rate_limit", 10.0)
	viper.SetDefault("line.rate_burst", 20)

	// Scheduler defaults (five-field cron, evaluated in scheduler.timezone)
	viper.SetDefault("scheduler.enabled", true)
	viper.SetDefault("scheduler.timezone", "Asia/Taipei")
	viper.SetDefault("scheduler.reminder_scan_spec", "0 * * * *")
	viper.SetDefault("scheduler.overdue_scan_spec", "0 9 * * *")
	viper.SetDefault("scheduler.overdue_digest_spec", "0 9 * * *")
	viper.SetDefault("scheduler.review_reminder_spec", "0 9 * * *")
	viper.SetDefault("scheduler.incomplete_summary_spec", "0 8 * * *")
	viper.SetDefault("scheduler.supervisor_weekly_spec", "0 8 * * 1")
	viper.SetDefault("scheduler.weekly_report_spec", "0 13 * * 5")
	viper.SetDefault("scheduler.kpi_refresh_spec", "0 0 * * *")
	viper.SetDefault("scheduler.recurring_tick_spec", "*/5 * * * *")
	viper.SetDefault("scheduler.backup_spec", "0 2 * * *")
	viper.SetDefault("scheduler.membership_cleanup_spec", "0 10 * * *")

	// Reminder defaults: one day and one hour before the due time.
	viper.SetDefault("reminders.intervals", map[string]time.Duration{
		"P1D":  24 * time.Hour,
		"PT1H": time.Hour,
	})

	// Reports defaults
	viper.SetDefault("reports.excel_output_dir", "generated_reports")

	// Backup defaults
	viper.SetDefault("backup.output_dir", "backups")
	viper.SetDefault("backup.keep", 14)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	// Sensitive credentials from environment
	viper.BindEnv("line.channel_token", "LINE_CHANNEL_TOKEN")
	viper.BindEnv("database.path", "DATABASE_PATH")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Line.ChannelToken == "" {
		return fmt.Errorf("line.channel_token is required")
	}

	if c.Scheduler.Timezone == "" {
		return fmt.Errorf("scheduler.timezone is required")
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("scheduler.timezone is invalid: %w", err)
	}

	if c.Line.RateLimit <= 0 {
		return fmt.Errorf("line.rate_limit must be positive")
	}

	if len(c.Reminders.Intervals) == 0 {
		return fmt.Errorf("reminders.intervals must not be empty")
	}
	for tag, d := range c.Reminders.Intervals {
		if d <= 0 {
			return fmt.Errorf("reminders.intervals[%s] must be positive", tag)
		}
	}

	return nil
}
