package breaker

import (
	"sync"
	"time"

	"github.com/dizzybeaver/lambda-execution-engine/internal/metrics"
	"github.com/dizzybeaver/lambda-execution-engine/pkg/logger"
)

const (
	// DefaultFailureThreshold opens a breaker after this many consecutive failures
	DefaultFailureThreshold = 5
	// DefaultCoolDown is how long a breaker stays open before a trial call
	DefaultCoolDown = 30 * time.Second
)

// Registry holds one circuit breaker per named resource, created lazily on
// first use. Entries are never removed; ResetAll resets their state in place.
type Registry struct {
	breakers map[string]*CircuitBreaker
	recorder metrics.Recorder
	logger   *logger.Logger
	mu       sync.Mutex
}

// NewRegistry creates an empty breaker registry
func NewRegistry(recorder metrics.Recorder, log *logger.Logger) *Registry {
	return &Registry{
		breakers: make(map[string]*CircuitBreaker),
		recorder: recorder,
		logger:   log,
	}
}

// GetOrCreate returns the breaker for name, creating it with the given
// configuration on first use. The first caller's threshold and cool-down
// win for the lifetime of the process; later configurations for the same
// name are silently ignored.
func (r *Registry) GetOrCreate(name string, threshold int, coolDown time.Duration) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, exists := r.breakers[name]; exists {
		return cb
	}

	cb := New(name, threshold, coolDown, r.recorder, r.logger)
	r.breakers[name] = cb

	r.logger.WithFields(map[string]interface{}{
		"breaker":   name,
		"threshold": threshold,
		"cool_down": coolDown.String(),
	}).Debug("Circuit breaker created")

	return cb
}

// Get returns the breaker for name with default configuration
func (r *Registry) Get(name string) *CircuitBreaker {
	return r.GetOrCreate(name, DefaultFailureThreshold, DefaultCoolDown)
}

// Lookup returns the breaker for name without creating one. Read-only
// surfaces use this; the registry is append-only, so a lookup must never
// add an entry as a side effect.
func (r *Registry) Lookup(name string) (*CircuitBreaker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.breakers[name]
	return cb, ok
}

// Call is a convenience composing GetOrCreate and Call with defaults
func (r *Registry) Call(name string, fn ProtectedFunc) (interface{}, error) {
	return r.Get(name).Call(fn)
}

// AllStates returns a snapshot of every registered breaker keyed by name
func (r *Registry) AllStates() map[string]Snapshot {
	r.mu.Lock()
	breakers := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, cb := range r.breakers {
		breakers = append(breakers, cb)
	}
	r.mu.Unlock()

	states := make(map[string]Snapshot, len(breakers))
	for _, cb := range breakers {
		snap := cb.Snapshot()
		states[snap.Name] = snap
	}
	return states
}

// ResetAll resets every breaker's state without removing entries
func (r *Registry) ResetAll() {
	r.mu.Lock()
	breakers := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, cb := range r.breakers {
		breakers = append(breakers, cb)
	}
	r.mu.Unlock()

	for _, cb := range breakers {
		cb.Reset()
	}

	r.logger.Infof("Reset %d circuit breakers", len(breakers))
}

// Count returns the number of registered breakers
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.breakers)
}
