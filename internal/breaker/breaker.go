// Package breaker implements a per-resource circuit breaker guarding calls
// to volatile external dependencies, plus a process-wide registry of named
// breakers. All state is process-local; it persists only as long as the
// hosting process (warm reuse), never across restarts.
package breaker

import (
	"sync"
	"time"

	"github.com/dizzybeaver/lambda-execution-engine/internal/errors"
	"github.com/dizzybeaver/lambda-execution-engine/internal/metrics"
	"github.com/dizzybeaver/lambda-execution-engine/pkg/logger"
)

// State represents the state of a circuit breaker
type State int

const (
	// StateClosed - calls pass through, consecutive failures are counted
	StateClosed State = iota
	// StateOpen - calls are rejected until the cool-down elapses
	StateOpen
	// StateHalfOpen - a single trial call probes whether the dependency recovered
	StateHalfOpen
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// ProtectedFunc is a call guarded by a circuit breaker
type ProtectedFunc func() (interface{}, error)

// Snapshot is a read-only view of a breaker's state
type Snapshot struct {
	Name                string     `json:"name"`
	State               string     `json:"state"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	FailureThreshold    int        `json:"failure_threshold"`
	CoolDown            string     `json:"cool_down"`
	LastFailureTime     *time.Time `json:"last_failure_time,omitempty"`
}

// CircuitBreaker guards a protected call to one named resource, tracking
// consecutive failures and a cool-down timeout.
type CircuitBreaker struct {
	name     string
	logger   *logger.Logger
	recorder metrics.Recorder

	threshold int
	coolDown  time.Duration

	state           State
	failures        int
	lastFailureTime time.Time
	trialInFlight   bool

	now func() time.Time
	mu  sync.Mutex
}

// New creates a circuit breaker for the named resource. Threshold is the
// number of consecutive failures that opens the circuit; coolDown is how
// long the circuit stays open before a trial call is allowed.
func New(name string, threshold int, coolDown time.Duration, recorder metrics.Recorder, log *logger.Logger) *CircuitBreaker {
	if threshold < 1 {
		threshold = 1
	}
	return &CircuitBreaker{
		name:      name,
		logger:    log.BreakerLogger(name),
		recorder:  recorder,
		threshold: threshold,
		coolDown:  coolDown,
		state:     StateClosed,
		now:       time.Now,
	}
}

// Call executes fn under the breaker's protection. While the circuit is
// open and the cool-down has not elapsed, fn is never invoked and the
// rejection does not count as a new failure. The lock is released while fn
// runs so snapshot reads never block behind a slow upstream; in half-open
// only one trial call is admitted at a time and concurrent callers are
// rejected as if the circuit were still open.
func (cb *CircuitBreaker) Call(fn ProtectedFunc) (interface{}, error) {
	cb.mu.Lock()
	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastFailureTime) < cb.coolDown {
			cb.mu.Unlock()
			return nil, errors.NewBreakerOpenError(cb.name)
		}
		cb.state = StateHalfOpen
		cb.trialInFlight = true
		cb.logger.Info("Circuit breaker transitioning to half-open for trial call")

	case StateHalfOpen:
		if cb.trialInFlight {
			cb.mu.Unlock()
			return nil, errors.NewBreakerOpenError(cb.name)
		}
		cb.trialInFlight = true
	}
	start := cb.now()
	cb.mu.Unlock()

	result, err := fn()

	cb.mu.Lock()
	cb.trialInFlight = false
	duration := cb.now().Sub(start)
	if err != nil {
		cb.onFailure()
	} else {
		cb.onSuccess()
	}
	cb.mu.Unlock()

	cb.report(duration, err == nil)

	if err != nil {
		return nil, err
	}
	return result, nil
}

// onFailure records a failed call; callers hold cb.mu.
func (cb *CircuitBreaker) onFailure() {
	cb.failures++
	cb.lastFailureTime = cb.now()

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.threshold {
			cb.state = StateOpen
			cb.logger.WithFields(map[string]interface{}{
				"failures":  cb.failures,
				"threshold": cb.threshold,
				"cool_down": cb.coolDown.String(),
			}).Warn("Circuit breaker opening due to consecutive failures")
		}

	case StateHalfOpen:
		// Failed trial re-arms the cool-down from this failure time
		cb.state = StateOpen
		cb.logger.Info("Circuit breaker opening again after failed trial call")
	}
}

// onSuccess records a successful call; callers hold cb.mu.
func (cb *CircuitBreaker) onSuccess() {
	switch cb.state {
	case StateClosed:
		cb.failures = 0

	case StateHalfOpen:
		cb.state = StateClosed
		cb.failures = 0
		cb.lastFailureTime = time.Time{}
		cb.logger.Info("Circuit breaker closing after successful trial call")
	}
}

// report emits the call outcome to the metrics recorder. Reporting is
// best-effort: a panicking or failing recorder never alters the breaker's
// state transition or the caller's result.
func (cb *CircuitBreaker) report(duration time.Duration, success bool) {
	if cb.recorder == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			cb.logger.WithField("panic", r).Debug("Metrics recorder panicked, outcome discarded")
		}
	}()
	cb.recorder.RecordCall("breaker:"+cb.name, duration, success)
}

// Reset forces the breaker back to closed regardless of prior state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.lastFailureTime = time.Time{}

	cb.logger.Info("Circuit breaker reset to closed state")
}

// GetState returns the current state without mutating anything
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Snapshot returns a read-only view of the breaker
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	snap := Snapshot{
		Name:                cb.name,
		State:               cb.state.String(),
		ConsecutiveFailures: cb.failures,
		FailureThreshold:    cb.threshold,
		CoolDown:            cb.coolDown.String(),
	}
	if !cb.lastFailureTime.IsZero() {
		t := cb.lastFailureTime
		snap.LastFailureTime = &t
	}
	return snap
}

// setClock replaces the time source. Test hook.
func (cb *CircuitBreaker) setClock(now func() time.Time) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.now = now
}
