// Package config loads wayfairmcp settings from defaults, YAML files and the
// environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	wferrors "github.com/tomrikert/wayfair-mcp-server/internal/errors"
)

// File names searched for project configuration, in order.
const (
	ProjectConfigName    = ".wayfairmcp.yaml"
	ProjectConfigNameAlt = ".wayfairmcp.yml"
)

// Transports supported by the MCP server.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config represents the complete wayfairmcp configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Scraper   ScraperConfig   `yaml:"scraper" json:"scraper"`
	Catalog   CatalogConfig   `yaml:"catalog" json:"catalog"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// ScraperConfig configures live retrieval from the retailer site.
type ScraperConfig struct {
	// Enabled turns live retrieval on. When false every search uses the catalog.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// SearchURL is the search page template; {query} is replaced by the escaped text.
	SearchURL string `yaml:"search_url" json:"search_url"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
	// Timeout bounds one live request, e.g. "10s".
	Timeout      string `yaml:"timeout" json:"timeout"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" json:"max_body_bytes"`
	// MaxRetries retries timed-out or unreachable requests. 0 disables retries.
	MaxRetries     int                  `yaml:"max_retries" json:"max_retries"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker" json:"circuit_breaker"`
}

// CircuitBreakerConfig configures skipping live retrieval after repeated failures.
type CircuitBreakerConfig struct {
	Enabled      bool   `yaml:"enabled" json:"enabled"`
	MaxFailures  int    `yaml:"max_failures" json:"max_failures"`
	ResetTimeout string `yaml:"reset_timeout" json:"reset_timeout"`
}

// CatalogConfig configures the fallback dataset.
type CatalogConfig struct {
	// Path to a JSON dataset. Empty uses the embedded catalog.
	Path string `yaml:"path" json:"path"`
}

// SearchConfig configures query defaults.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	// Addr is the listen address for the http transport.
	Addr string `yaml:"addr" json:"addr"`
}

// TelemetryConfig configures search metrics.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Persist writes aggregate counters to a SQLite file at Path.
	Persist       bool   `yaml:"persist" json:"persist"`
	Path          string `yaml:"path" json:"path"`
	FlushInterval string `yaml:"flush_interval" json:"flush_interval"`
}

// LoggingConfig configures the log file.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// Defaults mirrored by the extraction adapter and search package.
const (
	DefaultSearchURL    = "https://www.wayfair.com/keyword.php?keyword={query}"
	DefaultUserAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	DefaultTimeout      = "10s"
	DefaultMaxBodyBytes = 5 << 20
	DefaultAddr         = "127.0.0.1:8765"
)

// NewConfig creates a new Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Scraper: ScraperConfig{
			Enabled:      true,
			SearchURL:    DefaultSearchURL,
			UserAgent:    DefaultUserAgent,
			Timeout:      DefaultTimeout,
			MaxBodyBytes: DefaultMaxBodyBytes,
			MaxRetries:   0,
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:      false,
				MaxFailures:  5,
				ResetTimeout: "60s",
			},
		},
		Search: SearchConfig{
			DefaultLimit: 10,
		},
		Server: ServerConfig{
			Transport: TransportStdio,
			Addr:      DefaultAddr,
		},
		Telemetry: TelemetryConfig{
			Enabled:       true,
			Persist:       false,
			Path:          filepath.Join(DataDir(), "telemetry.db"),
			FlushInterval: "1m",
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// DataDir returns ~/.wayfairmcp, where logs and telemetry live.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".wayfairmcp")
	}
	return filepath.Join(home, ".wayfairmcp")
}

// GetUserConfigPath returns the path to the user configuration file.
// It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/wayfairmcp/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/wayfairmcp/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "wayfairmcp", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "wayfairmcp", "config.yaml")
	}
	return filepath.Join(home, ".config", "wayfairmcp", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// FindProjectConfig returns the project config file in dir, or "" if none.
func FindProjectConfig(dir string) string {
	for _, name := range []string{ProjectConfigName, ProjectConfigNameAlt} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// Load loads configuration for the given working directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/wayfairmcp/config.yaml)
//  3. Project config (.wayfairmcp.yaml in dir)
//  4. Environment variables (WAYFAIRMCP_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if path := FindProjectConfig(dir); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile returns the defaults overlaid with a single YAML file, without
// environment overrides or validation.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML overlays the values present in a YAML file onto c.
// Keys absent from the file keep their current value.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return wferrors.New(wferrors.ErrCodeConfigPermission,
				fmt.Sprintf("cannot read config file %s", path), err)
		}
		return wferrors.New(wferrors.ErrCodeConfigNotFound,
			fmt.Sprintf("cannot read config file %s", path), err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return wferrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err).
			WithDetail("path", path).
			WithSuggestion("Run 'wayfairmcp config show' to see the expected layout")
	}
	return nil
}

// applyEnvOverrides applies WAYFAIRMCP_* environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	strs := map[string]*string{
		"WAYFAIRMCP_SEARCH_URL":             &c.Scraper.SearchURL,
		"WAYFAIRMCP_USER_AGENT":             &c.Scraper.UserAgent,
		"WAYFAIRMCP_SCRAPER_TIMEOUT":        &c.Scraper.Timeout,
		"WAYFAIRMCP_CATALOG_PATH":           &c.Catalog.Path,
		"WAYFAIRMCP_TRANSPORT":              &c.Server.Transport,
		"WAYFAIRMCP_ADDR":                   &c.Server.Addr,
		"WAYFAIRMCP_LOG_LEVEL":              &c.Logging.Level,
		"WAYFAIRMCP_TELEMETRY_PATH":         &c.Telemetry.Path,
		"WAYFAIRMCP_CIRCUIT_BREAKER_TIMEOUT": &c.Scraper.CircuitBreaker.ResetTimeout,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"WAYFAIRMCP_SCRAPER_ENABLED":   &c.Scraper.Enabled,
		"WAYFAIRMCP_CIRCUIT_BREAKER":   &c.Scraper.CircuitBreaker.Enabled,
		"WAYFAIRMCP_TELEMETRY_ENABLED": &c.Telemetry.Enabled,
		"WAYFAIRMCP_TELEMETRY_PERSIST": &c.Telemetry.Persist,
	}
	for key, dst := range bools {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return envError(key, v, "true or false")
			}
			*dst = b
		}
	}

	ints := map[string]*int{
		"WAYFAIRMCP_MAX_RETRIES":   &c.Scraper.MaxRetries,
		"WAYFAIRMCP_DEFAULT_LIMIT": &c.Search.DefaultLimit,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return envError(key, v, "an integer")
			}
			*dst = n
		}
	}
	return nil
}

func envError(key, value, want string) error {
	return wferrors.ConfigError(fmt.Sprintf("%s=%q is not %s", key, value, want), nil).
		WithDetail("env", key)
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	s := c.Scraper
	if s.Enabled {
		if !strings.Contains(s.SearchURL, "{query}") {
			return invalid("scraper.search_url", "must contain the {query} placeholder")
		}
		u, err := url.Parse(strings.ReplaceAll(s.SearchURL, "{query}", "q"))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalid("scraper.search_url", "must be an absolute http or https URL")
		}
	}
	if d, err := time.ParseDuration(s.Timeout); err != nil || d <= 0 {
		return invalid("scraper.timeout", fmt.Sprintf("must be a positive duration, got %q", s.Timeout))
	}
	if s.MaxBodyBytes <= 0 {
		return invalid("scraper.max_body_bytes", "must be positive")
	}
	if s.MaxRetries < 0 || s.MaxRetries > 5 {
		return invalid("scraper.max_retries", fmt.Sprintf("must be between 0 and 5, got %d", s.MaxRetries))
	}
	if cb := s.CircuitBreaker; cb.Enabled {
		if cb.MaxFailures < 1 {
			return invalid("scraper.circuit_breaker.max_failures", "must be at least 1")
		}
		if d, err := time.ParseDuration(cb.ResetTimeout); err != nil || d <= 0 {
			return invalid("scraper.circuit_breaker.reset_timeout",
				fmt.Sprintf("must be a positive duration, got %q", cb.ResetTimeout))
		}
	}

	if c.Search.DefaultLimit < 1 || c.Search.DefaultLimit > 100 {
		return invalid("search.default_limit", fmt.Sprintf("must be between 1 and 100, got %d", c.Search.DefaultLimit))
	}

	switch strings.ToLower(c.Server.Transport) {
	case TransportStdio:
	case TransportHTTP:
		if c.Server.Addr == "" {
			return invalid("server.addr", "is required for the http transport")
		}
	default:
		return invalid("server.transport", fmt.Sprintf("must be 'stdio' or 'http', got %q", c.Server.Transport))
	}

	if c.Telemetry.Persist && c.Telemetry.Path == "" {
		return invalid("telemetry.path", "is required when telemetry.persist is true")
	}
	if c.Telemetry.FlushInterval != "" {
		if _, err := time.ParseDuration(c.Telemetry.FlushInterval); err != nil {
			return invalid("telemetry.flush_interval", fmt.Sprintf("invalid duration %q", c.Telemetry.FlushInterval))
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return invalid("logging.level", fmt.Sprintf("must be 'debug', 'info', 'warn', or 'error', got %q", c.Logging.Level))
	}
	if c.Logging.MaxSizeMB < 1 || c.Logging.MaxFiles < 1 {
		return invalid("logging", "max_size_mb and max_files must be at least 1")
	}
	return nil
}

func invalid(field, msg string) error {
	return wferrors.ConfigError(field+" "+msg, nil).WithDetail("field", field)
}

// ScraperTimeout returns the parsed live request timeout.
func (c *Config) ScraperTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Scraper.Timeout)
	return d
}

// BreakerResetTimeout returns the parsed circuit breaker reset timeout.
func (c *Config) BreakerResetTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Scraper.CircuitBreaker.ResetTimeout)
	return d
}

// TelemetryFlushInterval returns the parsed flush interval, 0 when unset.
func (c *Config) TelemetryFlushInterval() time.Duration {
	d, _ := time.ParseDuration(c.Telemetry.FlushInterval)
	return d
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
