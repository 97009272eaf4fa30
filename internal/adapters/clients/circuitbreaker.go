package clients

import (
	"sync"
	"time"
)

// State represents the current state of the circuit breaker.
type State int

const (
	// StateClosed lets every request through.
	StateClosed State = iota

	// StateOpen blocks requests until the cool-down passes.
	StateOpen

	// StateHalfOpen lets a limited number of probes through.
	StateHalfOpen
)

// String returns a human-readable name for the state.
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

// CircuitBreakerConfig configures the circuit breaker behavior.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures int

	// Timeout is the cool-down spent open before probing.
	Timeout time.Duration

	// HalfOpenLimit is both the number of probes allowed in flight and the
	// number of successful probes needed to close again.
	HalfOpenLimit int
}

// CircuitBreaker stops hammering a remote that keeps failing.
//
//	closed    --MaxFailures consecutive failures-->  open
//	open      --Timeout elapsed, next Allow-------->  half-open
//	half-open --HalfOpenLimit successes------------>  closed
//	half-open --any failure------------------------>  open
type CircuitBreaker struct {
	mu       sync.Mutex
	cfg      CircuitBreakerConfig
	state    State
	failures int
	probes   int
	passed   int
	openedAt time.Time

	onChange func(from, to State)
	now      func() time.Time
}

// NewCircuitBreaker creates a closed circuit breaker.
// Non-positive limits are raised to 1.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	cfg.MaxFailures = max(cfg.MaxFailures, 1)
	cfg.HalfOpenLimit = max(cfg.HalfOpenLimit, 1)

	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// OnStateChange registers a callback run on every transition.
// It runs on its own goroutine.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.onChange = fn
}

// Allow reports whether a request may proceed. A true result must be
// followed by exactly one RecordSuccess or RecordFailure.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.openedAt) < cb.cfg.Timeout {
			return false
		}

		cb.setState(StateHalfOpen)
	}

	if cb.state == StateHalfOpen {
		if cb.probes >= cb.cfg.HalfOpenLimit {
			return false
		}

		cb.probes++
	}

	return true
}

// RecordSuccess reports a request that reached the remote and got an answer.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.probes--
		cb.passed++

		if cb.passed >= cb.cfg.HalfOpenLimit {
			cb.setState(StateClosed)
		}
	case StateOpen:
	}
}

// RecordFailure reports a request that could not reach the remote.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures++

		if cb.failures >= cb.cfg.MaxFailures {
			cb.setState(StateOpen)
		}
	case StateHalfOpen:
		cb.setState(StateOpen)
	case StateOpen:
	}
}

// State returns the current state without triggering a transition.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.state
}

// setState must be called with the lock held.
func (cb *CircuitBreaker) setState(to State) {
	from := cb.state
	if from == to {
		return
	}

	cb.state = to
	cb.failures, cb.probes, cb.passed = 0, 0, 0

	if to == StateOpen {
		cb.openedAt = cb.now()
	}

	if cb.onChange != nil {
		go cb.onChange(from, to)
	}
}
