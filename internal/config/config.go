package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const envPrefix = "AGROBENCH_"

// Config represents the application configuration
type Config struct {
	Database   DatabaseConfig   `json:"database"`
	Server     ServerConfig     `json:"server"`
	Prediction PredictionConfig `json:"prediction"`
	Logging    LoggingConfig    `json:"logging"`
	Debug      DebugConfig      `json:"debug"`
}

// DatabaseConfig represents database configuration. Path is used by the
// duckdb driver, DSN by postgres.
type DatabaseConfig struct {
	Driver          string `json:"driver"             env:"DB_DRIVER"             envDefault:"duckdb"`
	Path            string `json:"path"               env:"DB_PATH"               envDefault:"~/.local/share/agrobench/agrobench.duckdb"`
	DSN             string `json:"dsn"                env:"DB_DSN"`
	MaxConnections  int    `json:"max_connections"    env:"DB_MAX_CONNECTIONS"    envDefault:"10"`
	MaxIdleConns    int    `json:"max_idle_conns"     env:"DB_MAX_IDLE_CONNS"     envDefault:"5"`
	ConnMaxLifetime string `json:"conn_max_lifetime"  env:"DB_CONN_MAX_LIFETIME"  envDefault:"30m"`
	ConnMaxIdleTime string `json:"conn_max_idle_time" env:"DB_CONN_MAX_IDLE_TIME" envDefault:"5m"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host               string `json:"host"                  env:"HOST"                  envDefault:"0.0.0.0"`
	Port               int    `json:"port"                  env:"PORT"                  envDefault:"3000"`
	CORSOrigin         string `json:"cors_origin"           env:"CORS_ORIGIN"           envDefault:"http://localhost:5173"`
	RateLimitPerMinute int    `json:"rate_limit_per_minute" env:"RATE_LIMIT_PER_MINUTE" envDefault:"600"`
	RateLimitBurst     int    `json:"rate_limit_burst"      env:"RATE_LIMIT_BURST"      envDefault:"60"`
	ReadTimeout        string `json:"read_timeout"          env:"READ_TIMEOUT"          envDefault:"15s"`
	WriteTimeout       string `json:"write_timeout"         env:"WRITE_TIMEOUT"         envDefault:"60s"`
	ShutdownTimeout    string `json:"shutdown_timeout"      env:"SHUTDOWN_TIMEOUT"      envDefault:"10s"`
}

// PredictionConfig points at the external lever-simulation model
type PredictionConfig struct {
	URL     string `json:"url"     env:"PREDICTION_URL"`
	Timeout string `json:"timeout" env:"PREDICTION_TIMEOUT" envDefault:"20s"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level     string `json:"level"      env:"LOG_LEVEL"      envDefault:"info"`   // debug, info, warn, error
	Format    string `json:"format"     env:"LOG_FORMAT"     envDefault:"text"`   // text, json
	Output    string `json:"output"     env:"LOG_OUTPUT"     envDefault:"stdout"` // stdout, stderr, file
	File      string `json:"file"       env:"LOG_FILE"       envDefault:"~/.local/share/agrobench/logs/agrobench.log"`
	AddSource bool   `json:"add_source" env:"LOG_ADD_SOURCE" envDefault:"false"`
}

// DebugConfig represents debug configuration
type DebugConfig struct {
	Enabled bool `json:"enabled" env:"DEBUG"   envDefault:"false"`
	Verbose bool `json:"verbose" env:"VERBOSE" envDefault:"false"`
}

// DefaultConfig returns the configuration obtained from defaults alone
func DefaultConfig() *Config {
	cfg := &Config{}
	// envDefault tags only, no environment lookups
	_ = env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix, Environment: map[string]string{}})

	return cfg
}

// LoadConfigWithOverrides loads configuration with optional command-line flag overrides.
// Precedence: flags > environment > config file > defaults.
func LoadConfigWithOverrides(flagOverrides map[string]any) (*Config, error) {
	config := DefaultConfig()

	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := applyEnvironmentOverrides(config); err != nil {
		return nil, err
	}

	if flagOverrides != nil {
		applyFlagOverrides(config, flagOverrides)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadConfigFromFile loads configuration from a JSON file
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	mergeConfigs(config, &fileConfig)

	return nil
}

// applyEnvironmentOverrides overlays only the variables actually set, so
// values from the config file survive when the environment is silent.
func applyEnvironmentOverrides(config *Config) error {
	var envConfig Config

	if err := env.ParseWithOptions(&envConfig, env.Options{
		Prefix:              envPrefix,
		Environment:         setVariables(),
		DefaultValueTagName: "noDefault",
	}); err != nil {
		return fmt.Errorf("failed to parse environment variables: %w", err)
	}

	mergeConfigs(config, &envConfig)

	return nil
}

// setVariables returns the prefixed variables present in the process environment
func setVariables() map[string]string {
	vars := make(map[string]string)

	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(key, envPrefix) {
			vars[key] = value
		}
	}

	return vars
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]any) {
	for key, value := range overrides {
		switch key {
		case "db-driver":
			if str, ok := value.(string); ok && str != "" {
				config.Database.Driver = str
			}
		case "db-path":
			if str, ok := value.(string); ok && str != "" {
				config.Database.Path = str
			}
		case "db-dsn":
			if str, ok := value.(string); ok && str != "" {
				config.Database.DSN = str
			}
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		case "port":
			if port, ok := value.(int); ok && port > 0 {
				config.Server.Port = port
			}
		case "verbose":
			if b, ok := value.(bool); ok {
				config.Debug.Verbose = b
			}
		case "debug":
			if b, ok := value.(bool); ok {
				config.Debug.Enabled = b
			}
		}
	}
}

// mergeConfigs copies every non-zero leaf of source into target
func mergeConfigs(target, source *Config) {
	var mergeValues func(t, s reflect.Value)
	mergeValues = func(t, s reflect.Value) {
		if t.Kind() != s.Kind() {
			return
		}

		if t.Kind() == reflect.Struct {
			for i := range s.NumField() {
				mergeValues(t.Field(i), s.Field(i))
			}
		} else if !s.IsZero() {
			t.Set(s)
		}
	}

	mergeValues(reflect.ValueOf(target).Elem(), reflect.ValueOf(source).Elem())
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	switch strings.ToLower(config.Database.Driver) {
	case "duckdb":
	case "postgres":
		if config.Database.DSN == "" {
			return fmt.Errorf("database dsn is required when driver is postgres")
		}
	default:
		return fmt.Errorf("invalid database driver: %s (must be duckdb or postgres)", config.Database.Driver)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", config.Logging.Format)
	}

	validLogOutputs := map[string]bool{
		"stdout": true, "stderr": true, "file": true,
	}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf(
			"invalid log output: %s (must be stdout, stderr, or file)",
			config.Logging.Output,
		)
	}

	durations := map[string]string{
		"database conn max lifetime":  config.Database.ConnMaxLifetime,
		"database conn max idle time": config.Database.ConnMaxIdleTime,
		"server read timeout":         config.Server.ReadTimeout,
		"server write timeout":        config.Server.WriteTimeout,
		"server shutdown timeout":     config.Server.ShutdownTimeout,
		"prediction timeout":          config.Prediction.Timeout,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %s", name, value)
		}
	}

	if config.Database.MaxConnections <= 0 {
		return fmt.Errorf(
			"database max connections must be positive: %d",
			config.Database.MaxConnections,
		)
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", config.Server.Port)
	}

	if config.Server.RateLimitPerMinute <= 0 || config.Server.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit and burst must be positive")
	}

	return nil
}

// Duration parses a duration already checked by validateConfig
func Duration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}

	return d
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	if configPath := os.Getenv("AGROBENCH_CONFIG"); configPath != "" {
		return ExpandPath(configPath)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}

	return filepath.Join(homeDir, ".config", "agrobench", "config.json")
}

// ExpandPath expands ~ to home directory in file paths
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	c.Database.Path = ExpandPath(c.Database.Path)
	c.Logging.File = ExpandPath(c.Logging.File)
}

// Address returns the host:port the HTTP server listens on
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
