package errors

import (
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed is the normal state where live requests are allowed.
	StateClosed State = iota
	// StateOpen is when the circuit is tripped and live requests are skipped.
	StateOpen
	// StateHalfOpen admits a single probe after the reset timeout.
	StateHalfOpen
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker stops calling the retailer site after repeated failures.
// It is safe for concurrent use.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	now          func() time.Time

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
	probing     bool
}

// CircuitBreakerOption configures a CircuitBreaker.
type CircuitBreakerOption func(*CircuitBreaker)

// WithMaxFailures sets the number of consecutive failures before opening the circuit.
func WithMaxFailures(n int) CircuitBreakerOption {
	return func(cb *CircuitBreaker) {
		if n > 0 {
			cb.maxFailures = n
		}
	}
}

// WithResetTimeout sets the time to wait before a half-open probe.
func WithResetTimeout(d time.Duration) CircuitBreakerOption {
	return func(cb *CircuitBreaker) {
		if d > 0 {
			cb.resetTimeout = d
		}
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) CircuitBreakerOption {
	return func(cb *CircuitBreaker) {
		cb.now = now
	}
}

// NewCircuitBreaker creates a new circuit breaker with the given name.
// Default: 5 failures, 60 second reset timeout.
func NewCircuitBreaker(name string, opts ...CircuitBreakerOption) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:         name,
		maxFailures:  5,
		resetTimeout: 60 * time.Second,
		now:          time.Now,
		state:        StateClosed,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// Name returns the circuit breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// State returns the current circuit breaker state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState()
}

// currentState must be called with mu held.
func (cb *CircuitBreaker) currentState() State {
	if cb.state == StateOpen && cb.now().Sub(cb.lastFailure) >= cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Failures returns the current consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Allow reports whether a live request may go out.
// In half-open state only one caller gets through until it reports back.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentState() {
	case StateClosed:
		return true
	case StateHalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	default:
		return false
	}
}

// RecordSuccess closes the circuit and clears the failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.probing = false
	cb.state = StateClosed
}

// RecordFailure counts a failure. A failed half-open probe reopens immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	wasProbe := cb.probing
	cb.probing = false
	cb.failures++
	cb.lastFailure = cb.now()

	if wasProbe || cb.failures >= cb.maxFailures {
		cb.state = StateOpen
	}
}
