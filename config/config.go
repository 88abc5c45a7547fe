// Package config loads server configuration from defaults, an optional
// config file, a .env file and BUDGET_* environment variables, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Log      LogConfig
	Repair   RepairConfig
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port        int
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// AuthConfig holds token settings.
type AuthConfig struct {
	JWTSecret          string        `mapstructure:"jwt_secret"`
	TokenTTL           time.Duration `mapstructure:"token_ttl"`
	DefaultCountryCode string        `mapstructure:"default_country_code"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string
	Format string
}

// RepairConfig controls the background repair of budget totals.
type RepairConfig struct {
	Enabled   bool
	Interval  time.Duration
	BatchSize int `mapstructure:"batch_size"`
}

// Load reads configuration. Env var overrides use prefix BUDGET_, e.g.
// BUDGET_AUTH_JWT_SECRET. BUDGET_CONFIG names an optional config file.
func Load() (Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("database.path", "./data/budget.db")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 350*24*time.Hour)
	v.SetDefault("auth.default_country_code", "+92")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("repair.enabled", true)
	v.SetDefault("repair.interval", 5*time.Minute)
	v.SetDefault("repair.batch_size", 100)

	if cfgPath := os.Getenv("BUDGET_CONFIG"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
	}

	v.SetEnvPrefix("BUDGET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Validate reports every unusable setting.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.Repair.Enabled && c.Repair.Interval <= 0 {
		errs = append(errs, errors.New("repair.interval must be positive"))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Addr is the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// SlogLevel parses Level.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

// NewLogger builds the process logger.
func (c LogConfig) NewLogger() *slog.Logger {
	level, _ := c.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
