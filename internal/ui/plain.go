package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// PlainActivity prints a single "msg..." line (for CI/pipes).
type PlainActivity struct {
	mu      sync.Mutex
	out     io.Writer
	started bool
}

// NewPlainActivity creates a plain text activity.
func NewPlainActivity(cfg Config) *PlainActivity {
	return &PlainActivity{out: cfg.Output}
}

// Start implements Activity.
func (a *PlainActivity) Start(_ context.Context, msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started || a.out == nil {
		return
	}
	a.started = true
	_, _ = fmt.Fprintf(a.out, "%s...\n", msg)
}

// Stop implements Activity.
func (a *PlainActivity) Stop() {}
