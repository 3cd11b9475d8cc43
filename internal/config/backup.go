package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// MaxBackups is the number of backups kept per config file.
	MaxBackups = 3

	// BackupSuffix precedes the timestamp in backup file names.
	BackupSuffix = ".bak"
)

// backupTimeFormat sorts lexically in time order.
const backupTimeFormat = "20060102-150405.000"

// Backup copies the file at path to a timestamped sibling and prunes older
// backups beyond MaxBackups. It returns "" when there is nothing to back up.
func Backup(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read config for backup: %w", err)
	}

	backupPath := fmt.Sprintf("%s%s.%s", path, BackupSuffix, time.Now().Format(backupTimeFormat))
	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	backups, err := ListBackups(path)
	if err == nil && len(backups) > MaxBackups {
		for _, old := range backups[MaxBackups:] {
			_ = os.Remove(old)
		}
	}
	return backupPath, nil
}

// ListBackups returns the backups of the file at path, newest first.
func ListBackups(path string) ([]string, error) {
	dir, base := filepath.Dir(path), filepath.Base(path)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list config directory: %w", err)
	}

	prefix := base + BackupSuffix + "."
	var backups []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			backups = append(backups, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups, nil
}
