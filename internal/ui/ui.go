// Package ui provides terminal feedback for long-running CLI operations.
package ui

import (
	"context"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Activity shows that an operation is in progress.
type Activity interface {
	// Start begins showing msg. Calling Start twice is a no-op.
	Start(ctx context.Context, msg string)

	// Stop clears the indicator and waits for it to finish drawing.
	Stop()
}

// Config configures activity output.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// NewConfig creates a new Config with the given output and options.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{Output: output}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewActivity returns a spinner for interactive terminals and a one-line
// plain notice for CI, pipes and redirected output.
func NewActivity(cfg Config) Activity {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainActivity(cfg)
	}
	return NewSpinnerActivity(cfg)
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
