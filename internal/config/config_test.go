package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "duckdb", cfg.Database.Driver)
	assert.Equal(t, "~/.local/share/agrobench/agrobench.duckdb", cfg.Database.Path)
	assert.Equal(t, 10, cfg.Database.MaxConnections)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 600, cfg.Server.RateLimitPerMinute)
	assert.Equal(t, "20s", cfg.Prediction.Timeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.False(t, cfg.Debug.Enabled)
	assert.NoError(t, validateConfig(cfg))
}

func TestLoadConfigFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")

	testConfig := map[string]any{
		"database": map[string]any{
			"path":            "/srv/agrobench/data.duckdb",
			"max_connections": 20,
		},
		"server": map[string]any{
			"port":        8080,
			"cors_origin": "https://diag.example.org",
		},
		"logging": map[string]any{
			"level":  "debug",
			"format": "json",
		},
	}

	data, err := json.MarshalIndent(testConfig, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, data, 0600))

	config := DefaultConfig()
	require.NoError(t, loadConfigFromFile(config, configPath))

	assert.Equal(t, "/srv/agrobench/data.duckdb", config.Database.Path)
	assert.Equal(t, 20, config.Database.MaxConnections)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "https://diag.example.org", config.Server.CORSOrigin)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
	// untouched fields keep their defaults
	assert.Equal(t, "duckdb", config.Database.Driver)
	assert.Equal(t, "stdout", config.Logging.Output)
}

func TestLoadConfigFromFileInvalidJSON(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte("invalid json"), 0600))

	err := loadConfigFromFile(DefaultConfig(), configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestApplyEnvironmentOverrides(t *testing.T) {
	t.Setenv("AGROBENCH_DB_PATH", "/env/agro.duckdb")
	t.Setenv("AGROBENCH_DB_MAX_CONNECTIONS", "15")
	t.Setenv("AGROBENCH_PORT", "9090")
	t.Setenv("AGROBENCH_PREDICTION_URL", "http://model:8000")
	t.Setenv("AGROBENCH_LOG_LEVEL", "warn")
	t.Setenv("AGROBENCH_DEBUG", "true")

	config := DefaultConfig()
	config.Server.CORSOrigin = "https://from-file.example.org"
	require.NoError(t, applyEnvironmentOverrides(config))

	assert.Equal(t, "/env/agro.duckdb", config.Database.Path)
	assert.Equal(t, 15, config.Database.MaxConnections)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "http://model:8000", config.Prediction.URL)
	assert.Equal(t, "warn", config.Logging.Level)
	assert.True(t, config.Debug.Enabled)
	// unset variables do not reset earlier layers
	assert.Equal(t, "https://from-file.example.org", config.Server.CORSOrigin)
	assert.Equal(t, "text", config.Logging.Format)
}

func TestApplyEnvironmentOverridesInvalid(t *testing.T) {
	t.Setenv("AGROBENCH_PORT", "not-a-number")

	err := applyEnvironmentOverrides(DefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse environment variables")
}

func TestApplyFlagOverrides(t *testing.T) {
	config := DefaultConfig()

	applyFlagOverrides(config, map[string]any{
		"db-driver": "postgres",
		"db-dsn":    "postgres://agro@localhost/agro",
		"db-path":   "",
		"log-level": "debug",
		"port":      4000,
		"verbose":   true,
	})

	assert.Equal(t, "postgres", config.Database.Driver)
	assert.Equal(t, "postgres://agro@localhost/agro", config.Database.DSN)
	assert.Equal(t, "~/.local/share/agrobench/agrobench.duckdb", config.Database.Path)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, 4000, config.Server.Port)
	assert.True(t, config.Debug.Verbose)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid default", mutate: func(*Config) {}},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Database.Driver = "mysql" },
			wantErr: "invalid database driver",
		},
		{
			name:    "postgres without dsn",
			mutate:  func(c *Config) { c.Database.Driver = "postgres" },
			wantErr: "dsn is required",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "trace" },
			wantErr: "invalid log level",
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "invalid log format",
		},
		{
			name:    "invalid log output",
			mutate:  func(c *Config) { c.Logging.Output = "syslog" },
			wantErr: "invalid log output",
		},
		{
			name:    "invalid duration",
			mutate:  func(c *Config) { c.Prediction.Timeout = "soon" },
			wantErr: "invalid prediction timeout",
		},
		{
			name:    "zero connections",
			mutate:  func(c *Config) { c.Database.MaxConnections = 0 },
			wantErr: "max connections must be positive",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "port out of range",
		},
		{
			name:    "zero burst",
			mutate:  func(c *Config) { c.Server.RateLimitBurst = 0 },
			wantErr: "rate limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfigWithOverrides(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"server":{"port":7000},"logging":{"level":"warn"}}`), 0600))

	t.Setenv("AGROBENCH_CONFIG", configPath)
	t.Setenv("AGROBENCH_LOG_LEVEL", "error")

	cfg, err := LoadConfigWithOverrides(map[string]any{"port": 7100})
	require.NoError(t, err)

	assert.Equal(t, 7100, cfg.Server.Port)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, filepath.Join(home, "data", "agro.duckdb"), ExpandPath("~/data/agro.duckdb"))
	assert.Equal(t, "/abs/agro.duckdb", ExpandPath("/abs/agro.duckdb"))
	assert.Equal(t, "~other/agro.duckdb", ExpandPath("~other/agro.duckdb"))
}

func TestDurationAndAddress(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "0.0.0.0:3000", cfg.Server.Address())
	assert.Equal(t, float64(15), Duration(cfg.Server.ReadTimeout).Seconds())
	assert.Zero(t, Duration("garbage"))
}
