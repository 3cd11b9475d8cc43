// Package output provides consistent CLI output with optional color.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Writer provides formatted output for CLI commands.
type Writer struct {
	out    io.Writer
	styles Styles
}

// New creates a Writer that colors output only when out is a terminal and
// NO_COLOR is unset.
func New(out io.Writer) *Writer {
	return &Writer{out: out, styles: GetStyles(!UseColor(out))}
}

// NewPlain creates a Writer that never colors output.
func NewPlain(out io.Writer) *Writer {
	return &Writer{out: out, styles: NoColorStyles()}
}

// UseColor reports whether w is a terminal and NO_COLOR is unset.
func UseColor(w io.Writer) bool {
	if _, noColor := os.LookupEnv("NO_COLOR"); noColor {
		return false
	}
	return IsTTY(w)
}

// IsTTY checks if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Styles returns the writer's styles.
func (w *Writer) Styles() Styles {
	return w.styles
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message.
func (w *Writer) Success(msg string) {
	w.Status(w.styles.Success.Render("✓"), msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status(w.styles.Warning.Render("!"), msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status(w.styles.Error.Render("✗"), msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Header prints a bold heading line.
func (w *Writer) Header(msg string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Header.Render(msg))
}

// Code prints indented preformatted content.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// KeyValue prints an aligned "label: value" line.
func (w *Writer) KeyValue(label string, value any) {
	_, _ = fmt.Fprintf(w.out, "  %s %v\n", w.styles.Label.Render(fmt.Sprintf("%-16s", label+":")), value)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Styles holds the lipgloss styles used by Writer.
type Styles struct {
	Header   lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Dim      lipgloss.Style
	Label    lipgloss.Style
	Price    lipgloss.Style
	Discount lipgloss.Style
}

// Palette.
const (
	ColorPurple = "135"
	ColorGreen  = "42"
	ColorGray   = "245"
	ColorDim    = "240"
	ColorRed    = "196"
	ColorYellow = "220"
)

// DefaultStyles returns colored styles.
func DefaultStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorPurple)),
		Success:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGreen)),
		Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Dim:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDim)),
		Label:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Price:    lipgloss.NewStyle().Bold(true),
		Discount: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGreen)),
	}
}

// NoColorStyles returns unstyled components for plain output.
func NoColorStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Header:   plain,
		Success:  plain,
		Warning:  plain,
		Error:    plain,
		Dim:      plain,
		Label:    plain,
		Price:    plain,
		Discount: plain,
	}
}

// GetStyles returns the styles for the color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
