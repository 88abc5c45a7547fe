package config

import (
	"log/slog"
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

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 350*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "+92", cfg.Auth.DefaultCountryCode)
	assert.True(t, cfg.Repair.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Repair.Interval)

	// No secret by default
	assert.Error(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BUDGET_SERVER_PORT", "9090")
	t.Setenv("BUDGET_AUTH_JWT_SECRET", "s3cret")
	t.Setenv("BUDGET_REPAIR_INTERVAL", "30s")
	t.Setenv("BUDGET_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, ":9090", cfg.Server.Addr())
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 30*time.Second, cfg.Repair.Interval)
	require.NoError(t, cfg.Validate())

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  path: /tmp/x.db\nauth:\n  jwt_secret: from-file\n"), 0o600))
	t.Setenv("BUDGET_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", cfg.Database.Path)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("BUDGET_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Path: ":memory:"},
		Auth:     AuthConfig{JWTSecret: "x", TokenTTL: time.Hour},
		Log:      LogConfig{Level: "info"},
		Repair:   RepairConfig{Enabled: true, Interval: time.Minute},
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"no db path", func(c *Config) { c.Database.Path = "" }},
		{"no secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"zero ttl", func(c *Config) { c.Auth.TokenTTL = 0 }},
		{"zero repair interval", func(c *Config) { c.Repair.Interval = 0 }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}

	// Interval is irrelevant when repair is off
	off := valid
	off.Repair = RepairConfig{Enabled: false}
	assert.NoError(t, off.Validate())
}
