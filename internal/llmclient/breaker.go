package llmclient

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

func (s circuitState) String() string {
	switch s {
	case circuitClosed:
		return "closed"
	case circuitOpen:
		return "open"
	case circuitHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// circuitBreaker stops sending requests after FailureThreshold consecutive
// failures and lets a trial request through once Timeout has passed.
type circuitBreaker struct {
	mu          sync.Mutex
	cfg         CircuitBreakerConfig
	clock       quartz.Clock
	state       circuitState
	failures    int
	successes   int
	lastFailure time.Time
}

func newCircuitBreaker(cfg CircuitBreakerConfig, clock quartz.Clock) *circuitBreaker {
	return &circuitBreaker{cfg: cfg, clock: clock}
}

// Allow reports whether a request may be sent.
func (cb *circuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != circuitOpen {
		return true
	}
	if cb.clock.Since(cb.lastFailure) > cb.cfg.Timeout {
		cb.state = circuitHalfOpen
		cb.successes = 0
		return true
	}
	return false
}

func (cb *circuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case circuitHalfOpen:
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			cb.state = circuitClosed
			cb.failures = 0
		}
	case circuitClosed:
		cb.failures = 0
	}
}

func (cb *circuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = cb.clock.Now()

	switch cb.state {
	case circuitClosed:
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.state = circuitOpen
		}
	case circuitHalfOpen:
		cb.state = circuitOpen
		cb.successes = 0
	}
}

// State returns the current state name.
func (cb *circuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state.String()
}
