// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Owner     OwnerConfig     `mapstructure:"owner"`
	Topup     TopupConfig     `mapstructure:"topup"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Broadcast BroadcastConfig `mapstructure:"broadcast"`
	History   HistoryConfig   `mapstructure:"history"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// OwnerConfig identifies the bot operator. The owner id is fixed at
// provisioning and is always an admin regardless of the admin table.
type OwnerConfig struct {
	ID int64 `mapstructure:"id"`
}

// TopupConfig holds top-up workflow configuration.
type TopupConfig struct {
	MinAmount int64 `mapstructure:"min_amount"`
}

// PricingConfig holds the parametric weekly-pass pricing rule.
type PricingConfig struct {
	WeeklyPassRate int64 `mapstructure:"weekly_pass_rate"`
}

// BroadcastConfig throttles announcement fan-out.
type BroadcastConfig struct {
	SendDelay time.Duration `mapstructure:"send_delay"`
}

// HistoryConfig controls the /history page size.
type HistoryConfig struct {
	PageSize int `mapstructure:"page_size"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Enable environment variable override
	// Environment variables use underscore separator and uppercase
	// e.g., BOT_TOKEN, DATABASE_HOST, OWNER_ID
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional - env vars can provide all config)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - we can use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Owner.ID == 0 {
		return nil, fmt.Errorf("owner.id is required")
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "topupbot")
	v.SetDefault("database.name", "topupbot")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Workflow defaults
	v.SetDefault("topup.min_amount", 1000)
	v.SetDefault("pricing.weekly_pass_rate", 6200)
	v.SetDefault("broadcast.send_delay", "150ms")
	v.SetDefault("history.page_size", 5)
}
