package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPaths(t *testing.T) {
	assert.Contains(t, DefaultLogDir(), ".wayfairmcp")
	assert.Equal(t, "logs", filepath.Base(DefaultLogDir()))
	assert.Equal(t, "server.log", filepath.Base(DefaultLogPath()))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, 10, cfg.MaxSizeMB)
	assert.Equal(t, 5, cfg.MaxFiles)
	assert.False(t, cfg.WriteToStderr)

	mcp := MCPConfig("debug")
	assert.Equal(t, "debug", mcp.Level)
	assert.False(t, mcp.WriteToStderr)
}

func TestSetup_WritesJSONToFile(t *testing.T) {
	// Given: a file-only logger at debug level
	path := filepath.Join(t.TempDir(), "server.log")
	logger, cleanup, err := Setup(Config{Level: "debug", FilePath: path, MaxSizeMB: 1, MaxFiles: 2})
	require.NoError(t, err)

	// When: logging a debug line
	logger.Debug("search completed", slog.String("query", "sofa"), slog.Int("results", 2))
	cleanup()

	// Then: the file holds one JSON object with the attributes
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &line))
	assert.Equal(t, "DEBUG", line["level"])
	assert.Equal(t, "search completed", line["msg"])
	assert.Equal(t, "sofa", line["query"])
	assert.Equal(t, float64(2), line["results"])
}

func TestSetup_LevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	logger, cleanup, err := Setup(Config{Level: "warn", FilePath: path, MaxSizeMB: 1, MaxFiles: 1})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestSetup_NoOutputsDiscards(t *testing.T) {
	logger, cleanup, err := Setup(Config{Level: "info"})
	require.NoError(t, err)
	defer cleanup()
	logger.Info("nowhere")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestFindLogFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := FindLogFile("")
	require.Error(t, err)

	_, err = FindLogFile("/nonexistent/server.log")
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "x.log")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	got, err := FindLogFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestRotatingWriter_Rotation(t *testing.T) {
	// Given: a 1MB writer keeping two old files
	path := filepath.Join(t.TempDir(), "server.log")
	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()
	w.SetImmediateSync(false)

	// When: writing a little over 3MB
	chunk := []byte(strings.Repeat("x", 64*1024-1) + "\n")
	for i := 0; i < 50; i++ {
		_, err := w.Write(chunk)
		require.NoError(t, err)
	}

	// Then: the live file and two rotations exist, and no third
	assert.FileExists(t, path)
	assert.FileExists(t, path+".1")
	assert.FileExists(t, path+".2")
	assert.NoFileExists(t, path+".3")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.LessOrEqual(t, info.Size(), int64(1<<20))
}

func TestRotatingWriter_AppendsToExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	w, err := NewRotatingWriter(path, 1, 1)
	require.NoError(t, err)
	_, err = w.Write([]byte("new\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old\nnew\n", string(data))
}

func TestRotatingWriter_ConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, _ = fmt.Fprintf(w, "writer %d line %d\n", i, j)
			}
		}(i)
	}
	wg.Wait()
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 200)
}

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.log")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

const (
	debugLine = `{"time":"2026-03-01T10:00:00.000Z","level":"DEBUG","msg":"fetching","url":"https://example.com"}`
	infoLine  = `{"time":"2026-03-01T10:00:01.500Z","level":"INFO","msg":"search completed","query":"sofa","results":2}`
	errorLine = `{"time":"2026-03-01T10:00:02.000Z","level":"ERROR","msg":"catalog failed"}`
)

func TestViewer_Tail(t *testing.T) {
	path := writeLog(t, debugLine, infoLine, "not json", errorLine)
	v := NewViewer(ViewerConfig{NoColor: true}, nil)

	entries, err := v.Tail(path, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.False(t, entries[0].IsValid)
	assert.Equal(t, "catalog failed", entries[1].Msg)
}

func TestViewer_TailLevelAndPattern(t *testing.T) {
	path := writeLog(t, debugLine, infoLine, errorLine)

	v := NewViewer(ViewerConfig{Level: "info", NoColor: true}, nil)
	entries, err := v.Tail(path, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	v = NewViewer(ViewerConfig{Pattern: regexp.MustCompile("sofa"), NoColor: true}, nil)
	entries, err = v.Tail(path, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "search completed", entries[0].Msg)
}

func TestViewer_FormatEntry(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, nil)

	e := v.parseLine(infoLine)
	assert.Equal(t, "10:00:01.500 INFO  search completed query=sofa results=2", v.FormatEntry(e))

	raw := v.parseLine("plain text")
	assert.Equal(t, "plain text", v.FormatEntry(raw))
}

func TestViewer_Print(t *testing.T) {
	var b strings.Builder
	v := NewViewer(ViewerConfig{NoColor: true}, &b)
	v.Print([]LogEntry{v.parseLine(errorLine)})
	assert.Equal(t, "10:00:02.000 ERROR catalog failed\n", b.String())
}

func TestViewer_Follow(t *testing.T) {
	path := writeLog(t, debugLine)
	v := NewViewer(ViewerConfig{NoColor: true}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	entries := make(chan LogEntry, 4)
	done := make(chan error, 1)
	go func() { done <- v.Follow(ctx, path, entries) }()

	// Give Follow time to seek to the end.
	time.Sleep(150 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(infoLine + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case e := <-entries:
		assert.Equal(t, "search completed", e.Msg)
	case <-ctx.Done():
		t.Fatal("no entry followed")
	}
	cancel()
	assert.NoError(t, <-done)
}
