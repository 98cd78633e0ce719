// Package config loads service configuration from environment variables,
// with an optional .env file for local development. Viper binds the
// variables; Load validates the result.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	DBPath     string `mapstructure:"DB_PATH"`
	Env        string `mapstructure:"ENV"`

	BotToken      string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	JWTSecret     string `mapstructure:"JWT_SECRET"`
	TokenTTLHours int    `mapstructure:"TOKEN_TTL_HOURS"`

	// AdminIDsRaw is the comma-separated list of Telegram IDs allowed to
	// call administrative endpoints; use AdminIDs for the parsed form.
	AdminIDsRaw string `mapstructure:"ADMIN_TELEGRAM_IDS"`

	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	// Policy overrides; zero means "use the built-in default".
	MinDeposit          float64 `mapstructure:"MIN_DEPOSIT"`
	DepositStep         float64 `mapstructure:"DEPOSIT_STEP"`
	ActivationThreshold float64 `mapstructure:"ACTIVATION_THRESHOLD"`

	adminIDs map[int64]bool
}

// Load reads configuration from the environment, falling back to a .env
// file in the given path when one exists.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("DB_PATH", "miniapp.db")
	v.SetDefault("ENV", "development")
	v.SetDefault("TOKEN_TTL_HOURS", 24)
	v.SetDefault("ALLOWED_ORIGINS", "*")

	for _, key := range []string{
		"SERVER_PORT", "DB_PATH", "ENV",
		"TELEGRAM_BOT_TOKEN", "JWT_SECRET", "TOKEN_TTL_HOURS",
		"ADMIN_TELEGRAM_IDS", "ALLOWED_ORIGINS",
		"MIN_DEPOSIT", "DEPOSIT_STEP", "ACTIVATION_THRESHOLD",
	} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.BotToken == "" && cfg.Env == "production" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required in production")
	}
	if cfg.TokenTTLHours <= 0 {
		cfg.TokenTTLHours = 24
	}

	cfg.adminIDs = make(map[int64]bool)
	for _, part := range strings.Split(cfg.AdminIDsRaw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad ADMIN_TELEGRAM_IDS entry %q: %w", part, err)
		}
		cfg.adminIDs[id] = true
	}

	return &cfg, nil
}

// IsAdmin reports whether the given Telegram ID may call admin endpoints.
func (c *Config) IsAdmin(telegramID int64) bool {
	return c.adminIDs[telegramID]
}

// Origins returns the configured CORS origins.
func (c *Config) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
