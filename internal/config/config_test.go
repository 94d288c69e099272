package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DialectSQLite, cfg.Dialect)
	assert.Equal(t, InMemoryPath, cfg.DBPath)
	assert.Equal(t, 4, cfg.MaxConns)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Empty(t, cfg.Debug)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_JSON(t *testing.T) {
	path := writeSettings(t, "settings.json", `{
  "db_path": "/tmp/users.db",
  "max_conns": 2,
  "debug": ["query", "query-params"]
}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/users.db", cfg.DBPath)
	assert.Equal(t, 2, cfg.MaxConns)
	assert.True(t, cfg.HasDebug(DebugQuery))
	assert.True(t, cfg.HasDebug(DebugQueryParams))
	assert.Equal(t, DialectSQLite, cfg.Dialect)
}

func TestLoad_YAML(t *testing.T) {
	path := writeSettings(t, "settings.yaml", `
dialect: postgres
dsn: postgres://u:p@localhost:5432/db?sslmode=disable
debug:
  - query
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DialectPostgres, cfg.Dialect)
	assert.Equal(t, "postgres://u:p@localhost:5432/db?sslmode=disable", cfg.DSN)
	assert.True(t, cfg.HasDebug(DebugQuery))
	assert.False(t, cfg.HasDebug(DebugQueryParams))
}

func TestLoad_InvalidFile(t *testing.T) {
	path := writeSettings(t, "settings.json", `{not json`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvDBPath, "/data/override.db")
	t.Setenv(EnvMaxConns, "8")
	t.Setenv(EnvDebug, "query, query-params")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/data/override.db", cfg.DBPath)
	assert.Equal(t, 8, cfg.MaxConns)
	assert.Equal(t, []string{DebugQuery, DebugQueryParams}, cfg.Debug)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidMaxConns(t *testing.T) {
	t.Setenv(EnvMaxConns, "zero")

	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"unknown dialect", func(c *Config) { c.Dialect = "mysql" }, true},
		{"postgres without dsn", func(c *Config) { c.Dialect = DialectPostgres }, true},
		{"postgres with dsn", func(c *Config) { c.Dialect = DialectPostgres; c.DSN = "postgres://x" }, false},
		{"sqlite without path", func(c *Config) { c.DBPath = "" }, true},
		{"unknown debug flag", func(c *Config) { c.Debug = []string{"schema"} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
