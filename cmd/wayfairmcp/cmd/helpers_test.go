package cmd

import (
	"bytes"
	"path/filepath"
	"testing"
)

// isolateEnv points config and data directories at a temp dir and makes it
// the working directory.
func isolateEnv(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, ".config"))
	t.Chdir(tmpDir)
	return tmpDir
}

// runRoot executes the root command with args and returns stdout and stderr.
func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
