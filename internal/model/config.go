package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// DatabaseConfig selects and configures the alert repository backend.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver" yaml:"driver"`

	// DSN is the database path (sqlite) or connection string (postgres).
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// SlackConfig holds delivery settings for the chat platform.
type SlackConfig struct {
	// BotToken is the Slack bot token. Loaded from the environment.
	BotToken string `mapstructure:"-" yaml:"-"`

	// Channel is the default destination channel for digests.
	Channel string `mapstructure:"channel" yaml:"channel"`
}

// ScheduleConfig holds the cron expressions for the periodic triggers.
type ScheduleConfig struct {
	Daily  string `mapstructure:"daily" yaml:"daily"`
	Weekly string `mapstructure:"weekly" yaml:"weekly"`
}

// DriveConfig controls the external document search integration.
type DriveConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	SearchLimit int    `mapstructure:"search_limit" yaml:"search_limit"`
	BaseURL     string `mapstructure:"base_url" yaml:"base_url"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	// Timezone is the civil timezone all day/week math is computed in.
	Timezone string `mapstructure:"timezone" yaml:"timezone"`

	Workspaces []WorkspaceConfig `mapstructure:"workspaces" yaml:"workspaces"`
	Database   DatabaseConfig    `mapstructure:"database" yaml:"database"`
	Slack      SlackConfig       `mapstructure:"slack" yaml:"slack"`
	Schedule   ScheduleConfig    `mapstructure:"schedule" yaml:"schedule"`
	Drive      DriveConfig       `mapstructure:"drive" yaml:"drive"`

	// RetentionDays is how long persisted alerts are kept before the
	// retention sweep removes them.
	RetentionDays int `mapstructure:"retention_days" yaml:"retention_days"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskalerts/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "taskalerts", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Timezone: "Australia/Sydney",
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "taskalerts.db",
		},
		Schedule: ScheduleConfig{
			Daily:  "0 9 * * *",
			Weekly: "0 9 * * 1",
		},
		Drive: DriveConfig{
			SearchLimit: 5,
		},
		RetentionDays: 90,
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
// Credentials are always taken from the environment, not the file.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("timezone", "Australia/Sydney")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "taskalerts.db")
	v.SetDefault("schedule.daily", "0 9 * * *")
	v.SetDefault("schedule.weekly", "0 9 * * 1")
	v.SetDefault("drive.search_limit", 5)
	v.SetDefault("retention_days", 90)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return applyEnv(defaultAppConfig()), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return applyEnv(defaultAppConfig()), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return applyEnv(cfg), nil
}

// applyEnv overlays credentials and DSN overrides from the environment.
// Workspace tokens use MONDAY_API_TOKEN, or MONDAY_API_TOKEN_<ID> when
// multiple workspaces carry distinct credentials.
func applyEnv(cfg *AppConfig) *AppConfig {
	if token := os.Getenv("SLACK_BOT_TOKEN"); token != "" {
		cfg.Slack.BotToken = token
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.Database.Driver = "postgres"
		cfg.Database.DSN = dsn
	}

	shared := os.Getenv("MONDAY_API_TOKEN")
	for i := range cfg.Workspaces {
		key := "MONDAY_API_TOKEN_" + cfg.Workspaces[i].ID
		if token := os.Getenv(key); token != "" {
			cfg.Workspaces[i].APIToken = token
		} else if shared != "" {
			cfg.Workspaces[i].APIToken = shared
		}
	}

	return cfg
}
