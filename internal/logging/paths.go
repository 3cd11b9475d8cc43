package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultLogDir returns ~/.wayfairmcp/logs, or a temp-dir equivalent when the
// home directory is unknown.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".wayfairmcp", "logs")
	}
	return filepath.Join(home, ".wayfairmcp", "logs")
}

// DefaultLogPath returns the server log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "server.log")
}

// FindLogFile returns explicit if it exists, else the default log path.
func FindLogFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("log file not found: %s", explicit)
		}
		return explicit, nil
	}

	path := DefaultLogPath()
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("no log file found at %s\nRun 'wayfairmcp serve' or any command with --debug first", path)
	}
	return path, nil
}
