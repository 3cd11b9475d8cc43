package logging

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// maxLineBytes bounds a single log line when scanning.
const maxLineBytes = 1 << 20

// LogEntry is one parsed log line.
type LogEntry struct {
	Time    time.Time
	Level   string
	Msg     string
	Attrs   map[string]any
	Raw     string
	IsValid bool
}

// ViewerConfig filters and styles viewer output.
type ViewerConfig struct {
	Level   string         // minimum level shown
	Pattern *regexp.Regexp // raw line must match
	NoColor bool
}

// Viewer reads, filters and formats server logs.
type Viewer struct {
	config ViewerConfig
	out    io.Writer
	levels map[string]lipgloss.Style
}

// NewViewer creates a viewer writing to out.
func NewViewer(cfg ViewerConfig, out io.Writer) *Viewer {
	return &Viewer{
		config: cfg,
		out:    out,
		levels: map[string]lipgloss.Style{
			"DEBUG": lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
			"INFO":  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
			"WARN":  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
			"ERROR": lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		},
	}
}

// Tail returns the matching entries among the last n lines of path.
func (v *Viewer) Tail(path string, n int) ([]LogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if n <= 0 {
			continue
		}
		if len(ring) == n {
			ring = ring[1:]
		}
		ring = append(ring, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	var entries []LogEntry
	for _, line := range ring {
		if e := v.parseLine(line); v.matchesFilter(e) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// Follow streams entries appended to path until ctx is done.
func (v *Viewer) Follow(ctx context.Context, path string, entries chan<- LogEntry) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	reader := bufio.NewReader(f)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var partial string
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		for {
			chunk, err := reader.ReadString('\n')
			if err != nil {
				partial += chunk
				break
			}
			line := strings.TrimSuffix(partial+chunk, "\n")
			partial = ""
			if line == "" {
				continue
			}
			e := v.parseLine(line)
			if !v.matchesFilter(e) {
				continue
			}
			select {
			case entries <- e:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// FormatEntry renders an entry as "15:04:05.000 LEVEL msg k=v ...".
// Lines that are not JSON are returned as-is.
func (v *Viewer) FormatEntry(e LogEntry) string {
	if !e.IsValid {
		return e.Raw
	}

	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(e.Time.Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(v.formatLevel(e.Level))
	b.WriteByte(' ')
	b.WriteString(e.Msg)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Attrs[k])
	}
	return b.String()
}

// Print writes entries to the viewer output.
func (v *Viewer) Print(entries []LogEntry) {
	for _, e := range entries {
		_, _ = fmt.Fprintln(v.out, v.FormatEntry(e))
	}
}

func (v *Viewer) parseLine(line string) LogEntry {
	e := LogEntry{Raw: line}

	var data map[string]any
	if err := json.Unmarshal([]byte(line), &data); err != nil {
		return e
	}
	e.IsValid = true

	if t, ok := data["time"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			e.Time = parsed
		}
	}
	e.Level, _ = data["level"].(string)
	e.Msg, _ = data["msg"].(string)

	e.Attrs = make(map[string]any, len(data))
	for k, val := range data {
		switch k {
		case "time", "level", "msg":
		default:
			e.Attrs[k] = val
		}
	}
	return e
}

func (v *Viewer) matchesFilter(e LogEntry) bool {
	if v.config.Level != "" && e.IsValid && ParseLevel(e.Level) < ParseLevel(v.config.Level) {
		return false
	}
	if v.config.Pattern != nil && !v.config.Pattern.MatchString(e.Raw) {
		return false
	}
	return true
}

func (v *Viewer) formatLevel(level string) string {
	label := strings.ToUpper(level)
	if len(label) > 5 {
		label = label[:5]
	}
	padded := fmt.Sprintf("%-5s", label)
	if v.config.NoColor {
		return padded
	}
	if style, ok := v.levels[label]; ok {
		return style.Render(padded)
	}
	return padded
}
