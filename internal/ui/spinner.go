package ui

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ColorAccent is the spinner color.
const ColorAccent = "99"

// SpinnerActivity draws a bubbletea spinner on a terminal.
type SpinnerActivity struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSpinnerActivity creates a spinner activity. Use NewActivity unless the
// output is known to be a terminal.
func NewSpinnerActivity(cfg Config) *SpinnerActivity {
	return &SpinnerActivity{cfg: cfg}
}

// Start implements Activity.
func (a *SpinnerActivity) Start(ctx context.Context, msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.program != nil {
		return
	}

	ctx, a.cancel = context.WithCancel(ctx)
	model := newSpinnerModel(msg, a.cfg.NoColor || DetectNoColor())
	a.program = tea.NewProgram(model,
		tea.WithOutput(a.cfg.Output),
		tea.WithInput(nil),
		tea.WithContext(ctx),
		tea.WithoutSignalHandler(),
	)
	a.done = make(chan struct{})

	go func() {
		defer close(a.done)
		_, _ = a.program.Run()
	}()
}

// Stop implements Activity.
func (a *SpinnerActivity) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.program == nil {
		return
	}
	a.program.Send(doneMsg{})

	// Don't hang the command on an unresponsive terminal.
	select {
	case <-a.done:
	case <-time.After(2 * time.Second):
	}
	a.cancel()
}

type doneMsg struct{}

// spinnerModel is the bubbletea model for a single-line spinner.
type spinnerModel struct {
	spinner spinner.Model
	msg     string
	done    bool
}

func newSpinnerModel(msg string, noColor bool) *spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	if !noColor {
		s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent))
	}
	return &spinnerModel{spinner: s, msg: msg}
}

// Init implements tea.Model.
func (m *spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model. The final frame is empty so the line is cleared.
func (m *spinnerModel) View() string {
	if m.done {
		return ""
	}
	return m.spinner.View() + " " + m.msg + "..."
}
