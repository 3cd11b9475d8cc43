// Package logging writes structured JSON logs to a size-rotated file under
// ~/.wayfairmcp/logs.
//
// In MCP stdio mode stdout carries JSON-RPC, so logs go to the file only.
// CLI commands may mirror logs to stderr with --debug.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// FilePath is the log file. Empty disables file logging.
	FilePath string
	// MaxSizeMB is the size in MB that triggers rotation.
	MaxSizeMB int
	// MaxFiles is the number of rotated files kept.
	MaxFiles int
	// WriteToStderr mirrors log lines to stderr.
	WriteToStderr bool
}

// DefaultConfig returns the file logging defaults.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		FilePath:  DefaultLogPath(),
		MaxSizeMB: 10,
		MaxFiles:  5,
	}
}

// MCPConfig returns a file-only configuration safe for stdio serving.
func MCPConfig(level string) Config {
	cfg := DefaultConfig()
	cfg.Level = level
	cfg.WriteToStderr = false
	return cfg
}

// Setup builds a JSON logger for cfg and returns it with a cleanup function
// that flushes and closes the log file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	var writers []io.Writer
	cleanup := func() {}

	if cfg.FilePath != "" {
		w, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, w)
		cleanup = func() {
			_ = w.Sync()
			_ = w.Close()
		}
	}
	if cfg.WriteToStderr {
		writers = append(writers, os.Stderr)
	}

	var out io.Writer
	switch len(writers) {
	case 0:
		out = io.Discard
	case 1:
		out = writers[0]
	default:
		out = io.MultiWriter(writers...)
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	})
	return slog.New(handler), cleanup, nil
}

// SetupDefault runs Setup and installs the logger as the slog default.
func SetupDefault(cfg Config) (func(), error) {
	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return cleanup, nil
}

// ParseLevel converts a level name to slog.Level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
