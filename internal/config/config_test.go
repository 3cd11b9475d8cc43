package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wferrors "github.com/tomrikert/wayfair-mcp-server/internal/errors"
)

// isolate points the user config at an empty temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	return xdg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	// Given: no configuration file exists
	cfg := NewConfig()

	// Then: all defaults should be applied
	require.NotNil(t, cfg)
	assert.Equal(t, 1, cfg.Version)

	assert.True(t, cfg.Scraper.Enabled)
	assert.Equal(t, DefaultSearchURL, cfg.Scraper.SearchURL)
	assert.Equal(t, 10*time.Second, cfg.ScraperTimeout())
	assert.Equal(t, int64(5<<20), cfg.Scraper.MaxBodyBytes)
	assert.Equal(t, 0, cfg.Scraper.MaxRetries)
	assert.False(t, cfg.Scraper.CircuitBreaker.Enabled)
	assert.Equal(t, 5, cfg.Scraper.CircuitBreaker.MaxFailures)
	assert.Equal(t, time.Minute, cfg.BreakerResetTimeout())

	assert.Empty(t, cfg.Catalog.Path)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)

	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, "127.0.0.1:8765", cfg.Server.Addr)

	assert.True(t, cfg.Telemetry.Enabled)
	assert.False(t, cfg.Telemetry.Persist)
	assert.Contains(t, cfg.Telemetry.Path, ".wayfairmcp")
	assert.Equal(t, time.Minute, cfg.TelemetryFlushInterval())

	assert.Equal(t, "info", cfg.Logging.Level)

	require.NoError(t, cfg.Validate())
}

func TestLoad_NoFilesUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoad_ProjectOverridesUser(t *testing.T) {
	// Given: a user config and a project config touching the same keys
	xdg := isolate(t)
	writeFile(t, filepath.Join(xdg, "wayfairmcp", "config.yaml"), `
scraper:
  timeout: 3s
  max_retries: 2
search:
  default_limit: 5
`)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".wayfairmcp.yaml"), `
search:
  default_limit: 20
scraper:
  enabled: false
`)

	// When: loading
	cfg, err := Load(dir)
	require.NoError(t, err)

	// Then: project wins where set, user values survive elsewhere
	assert.Equal(t, 20, cfg.Search.DefaultLimit)
	assert.False(t, cfg.Scraper.Enabled)
	assert.Equal(t, 3*time.Second, cfg.ScraperTimeout())
	assert.Equal(t, 2, cfg.Scraper.MaxRetries)
	// Untouched keys keep defaults
	assert.Equal(t, DefaultSearchURL, cfg.Scraper.SearchURL)
}

func TestLoad_YmlExtension(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".wayfairmcp.yml"), "logging:\n  level: debug\n")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverridesFiles(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".wayfairmcp.yaml"), "server:\n  transport: stdio\n")

	t.Setenv("WAYFAIRMCP_TRANSPORT", "http")
	t.Setenv("WAYFAIRMCP_ADDR", "0.0.0.0:9000")
	t.Setenv("WAYFAIRMCP_SCRAPER_ENABLED", "false")
	t.Setenv("WAYFAIRMCP_MAX_RETRIES", "1")
	t.Setenv("WAYFAIRMCP_CATALOG_PATH", "/tmp/catalog.json")
	t.Setenv("WAYFAIRMCP_TELEMETRY_PERSIST", "1")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "http", cfg.Server.Transport)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.False(t, cfg.Scraper.Enabled)
	assert.Equal(t, 1, cfg.Scraper.MaxRetries)
	assert.Equal(t, "/tmp/catalog.json", cfg.Catalog.Path)
	assert.True(t, cfg.Telemetry.Persist)
}

func TestLoad_BadEnvValue(t *testing.T) {
	isolate(t)
	t.Setenv("WAYFAIRMCP_DEFAULT_LIMIT", "ten")

	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Equal(t, wferrors.ErrCodeConfigInvalid, wferrors.GetCode(err))
}

func TestLoad_MalformedYAML(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".wayfairmcp.yaml"), "search: [unclosed\n")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Equal(t, wferrors.ErrCodeConfigInvalid, wferrors.GetCode(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing placeholder", func(c *Config) { c.Scraper.SearchURL = "https://example.com/search" }, "scraper.search_url"},
		{"relative url", func(c *Config) { c.Scraper.SearchURL = "/search?q={query}" }, "scraper.search_url"},
		{"bad timeout", func(c *Config) { c.Scraper.Timeout = "soon" }, "scraper.timeout"},
		{"zero timeout", func(c *Config) { c.Scraper.Timeout = "0s" }, "scraper.timeout"},
		{"zero body limit", func(c *Config) { c.Scraper.MaxBodyBytes = 0 }, "scraper.max_body_bytes"},
		{"too many retries", func(c *Config) { c.Scraper.MaxRetries = 9 }, "scraper.max_retries"},
		{"breaker without failures", func(c *Config) {
			c.Scraper.CircuitBreaker.Enabled = true
			c.Scraper.CircuitBreaker.MaxFailures = 0
		}, "scraper.circuit_breaker.max_failures"},
		{"limit out of range", func(c *Config) { c.Search.DefaultLimit = 101 }, "search.default_limit"},
		{"unknown transport", func(c *Config) { c.Server.Transport = "sse" }, "server.transport"},
		{"http without addr", func(c *Config) {
			c.Server.Transport = "http"
			c.Server.Addr = ""
		}, "server.addr"},
		{"persist without path", func(c *Config) {
			c.Telemetry.Persist = true
			c.Telemetry.Path = ""
		}, "telemetry.path"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			var we *wferrors.WayfairError
			require.ErrorAs(t, err, &we)
			assert.Equal(t, tt.field, we.Details["field"])
		})
	}
}

func TestValidate_DisabledScraperSkipsURLCheck(t *testing.T) {
	cfg := NewConfig()
	cfg.Scraper.Enabled = false
	cfg.Scraper.SearchURL = ""
	assert.NoError(t, cfg.Validate())
}

func TestWriteYAML_RoundTripsThroughLoad(t *testing.T) {
	xdg := isolate(t)
	cfg := NewConfig()
	cfg.Search.DefaultLimit = 25
	cfg.Scraper.CircuitBreaker.Enabled = true

	path := filepath.Join(xdg, "wayfairmcp", "config.yaml")
	require.NoError(t, cfg.WriteYAML(path))
	assert.True(t, UserConfigExists())

	loaded, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 25, loaded.Search.DefaultLimit)
	assert.True(t, loaded.Scraper.CircuitBreaker.Enabled)
}

func TestGetUserConfigPath_HonorsXDG(t *testing.T) {
	xdg := isolate(t)
	assert.Equal(t, filepath.Join(xdg, "wayfairmcp", "config.yaml"), GetUserConfigPath())
	assert.Equal(t, filepath.Join(xdg, "wayfairmcp"), GetUserConfigDir())
}

func TestLoadFile_OverlaysOnlyThatFile(t *testing.T) {
	// Given: a file setting one key and an env override that must be ignored
	t.Setenv("WAYFAIRMCP_DEFAULT_LIMIT", "50")
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "scraper:\n  max_retries: 2\n")

	// When: loading the file alone
	cfg, err := LoadFile(path)

	// Then: defaults are kept except the file's key
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Scraper.MaxRetries)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.True(t, cfg.Scraper.Enabled)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))

	assert.Equal(t, wferrors.ErrCodeConfigNotFound, wferrors.GetCode(err))
}
