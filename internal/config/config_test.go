package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 30, cfg.Server.SessionTTLMins)
	assert.Equal(t, "file", cfg.Assets.LookupSource)
	assert.Equal(t, "data/state_zipcodes.json", cfg.Assets.LookupPath)
	assert.Contains(t, cfg.Assets.StatesPath, "us-states.json")
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 200, cfg.Interaction.StateClickIntervalMS)
	assert.InDelta(t, 0.15, cfg.Interaction.FitPadding, 0.001)
	assert.Equal(t, 700, cfg.Interaction.FitDurationMS)
	assert.InDelta(t, 120, cfg.Sidebar.MinHeight, 0.001)
	assert.InDelta(t, 0.96, cfg.Sidebar.MaxHeightFraction, 0.001)
	assert.Equal(t, "en-US", cfg.Format.Locale)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/zipmap
log:
  level: debug
  format: console
server:
  port: 9090
  allowed_origins:
    - http://localhost:5173
sidebar:
  min_height: 200
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/zipmap", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.AllowedOrigins)
	assert.InDelta(t, 200, cfg.Sidebar.MinHeight, 0.001)
	// Defaults still apply for unset values
	assert.InDelta(t, 0.96, cfg.Sidebar.MaxHeightFraction, 0.001)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("ZIPMAP_STORE_DRIVER", "postgres")
	t.Setenv("ZIPMAP_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("ZIPMAP_SERVER_PORT", "3000")
	t.Setenv("ZIPMAP_ASSETS_LOOKUP_SOURCE", "store")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "store", cfg.Assets.LookupSource)
}

func TestLoadAssetPaths(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
assets:
  states_path: data/states.geojson
  zipcodes_path: ftp://ftp2.census.gov/geo/zip3.geojson
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("ZIPMAP_ASSETS_LOOKUP_PATH", "data/lookup.csv")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "data/states.geojson", cfg.Assets.StatesPath)
	assert.Equal(t, "ftp://ftp2.census.gov/geo/zip3.geojson", cfg.Assets.ZipcodesPath)
	assert.Equal(t, "data/lookup.csv", cfg.Assets.LookupPath)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unterminated"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Server.SessionTTLMins = 30
	cfg.Assets.LookupSource = "file"
	cfg.Assets.LookupPath = "data/state_zipcodes.json"
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "zipmap.db"
	cfg.Interaction.FitPadding = 0.15
	cfg.Sidebar.MinHeight = 120
	cfg.Sidebar.MaxHeightFraction = 0.96
	return cfg
}

func TestValidateServe_Valid(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("serve"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateServe_ReportsEveryProblem(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.SessionTTLMins = 0
	cfg.Assets.LookupPath = ""
	cfg.Sidebar.MaxHeightFraction = 1.5

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session_ttl_mins")
	assert.Contains(t, err.Error(), "assets.lookup_path is required")
	assert.Contains(t, err.Error(), "max_height_fraction")
}

func TestValidateServe_StoreLookup(t *testing.T) {
	cfg := validDefaults()
	cfg.Assets.LookupSource = "store"
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Assets.LookupSource = "s3"
	err = cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be file or store")
}

func TestValidateLookup(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("lookup"))

	cfg.Store.Driver = "mysql"
	err := cfg.Validate("lookup")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
