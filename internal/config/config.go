// Package config provides configuration management for upsertcheck.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

const (
	// DialectSQLite selects the pure-Go SQLite driver.
	DialectSQLite = "sqlite"
	// DialectPostgres selects PostgreSQL through pgx.
	DialectPostgres = "postgres"

	// InMemoryPath is the SQLite path for a private in-memory database.
	InMemoryPath = ":memory:"

	// DebugQuery logs every SQL statement.
	DebugQuery = "query"
	// DebugQueryParams inlines bound parameters into logged SQL.
	DebugQueryParams = "query-params"
)

// Environment variables that override settings file values.
const (
	EnvConfigPath = "UPSERTCHECK_CONFIG"
	EnvDBPath     = "UPSERTCHECK_DB_PATH"
	EnvDialect    = "UPSERTCHECK_DIALECT"
	EnvDSN        = "UPSERTCHECK_DSN"
	EnvMaxConns   = "UPSERTCHECK_MAX_CONNS"
	EnvDebug      = "UPSERTCHECK_DEBUG"
	EnvLogLevel   = "UPSERTCHECK_LOG_LEVEL"
)

var knownDebugFlags = []string{DebugQuery, DebugQueryParams}

// Config holds the application configuration.
type Config struct {
	// Database settings
	Dialect  string `json:"dialect" yaml:"dialect"`
	DBPath   string `json:"db_path" yaml:"db_path"` // SQLite file, or ":memory:"
	DSN      string `json:"dsn" yaml:"dsn"`         // PostgreSQL DSN
	MaxConns int    `json:"max_conns" yaml:"max_conns"`

	// Session flush batch size
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// Logging
	LogLevel string   `json:"log_level" yaml:"log_level"`
	Debug    []string `json:"debug" yaml:"debug"` // "query", "query-params"
}

// Default returns a config targeting a private in-memory SQLite database.
func Default() *Config {
	return &Config{
		Dialect:   DialectSQLite,
		DBPath:    InMemoryPath,
		MaxConns:  4,
		BatchSize: 100,
		LogLevel:  "info",
	}
}

// Load reads the settings file at path and applies environment overrides.
// An empty path or a missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read settings: %w", err)
		default:
			if err := decode(path, data, cfg); err != nil {
				return nil, fmt.Errorf("parse settings %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvDialect); v != "" {
		cfg.Dialect = strings.ToLower(v)
	}
	if v := os.Getenv(EnvDSN); v != "" {
		cfg.DSN = v
	}
	if v := os.Getenv(EnvMaxConns); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s: invalid value %q", EnvMaxConns, v)
		}
		cfg.MaxConns = n
	}
	if v := os.Getenv(EnvDebug); v != "" {
		cfg.Debug = splitTrim(v)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

// Validate checks dialect and debug settings.
func (c *Config) Validate() error {
	switch c.Dialect {
	case DialectSQLite:
		if c.DBPath == "" {
			return errors.New("db_path is required for sqlite")
		}
	case DialectPostgres:
		if c.DSN == "" {
			return errors.New("dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported dialect %q", c.Dialect)
	}

	for _, flag := range c.Debug {
		if !slices.Contains(knownDebugFlags, flag) {
			return fmt.Errorf("unknown debug flag %q", flag)
		}
	}
	return nil
}

// HasDebug reports whether the given debug flag is enabled.
func (c *Config) HasDebug(flag string) bool {
	return slices.Contains(c.Debug, flag)
}

func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
