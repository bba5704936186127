package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/dizzybeaver/lambda-execution-engine/internal/breaker"
	"github.com/dizzybeaver/lambda-execution-engine/internal/gateway"
)

// CoreModule backs the CONFIG, SINGLETON, UTILITY, INITIALIZATION and
// DIAGNOSTICS interfaces with process-wide housekeeping operations.
type CoreModule struct {
	configView map[string]interface{}
	startTime  time.Time

	singletons map[string]interface{}
	mu         sync.Mutex

	fastPath *gateway.FastPathCache
	breakers *breaker.Registry
}

// NewCoreModule creates the module over a read-only config view and the
// gateway's diagnostic surfaces
func NewCoreModule(configView map[string]interface{}, fastPath *gateway.FastPathCache, breakers *breaker.Registry) *CoreModule {
	return &CoreModule{
		configView: configView,
		startTime:  time.Now(),
		singletons: make(map[string]interface{}),
		fastPath:   fastPath,
		breakers:   breakers,
	}
}

// HandleConfig dispatches one configuration read operation. The view is
// read-only; configuration is not runtime-mutable.
func (m *CoreModule) HandleConfig(operation string, params gateway.Params) (interface{}, error) {
	switch operation {
	case "get":
		key, err := stringParam(params, "key")
		if err != nil {
			return nil, err
		}
		value, found := m.configView[key]
		return map[string]interface{}{"value": value, "found": found}, nil

	case "all":
		return m.configView, nil

	default:
		return nil, fmt.Errorf("config module has no operation %q", operation)
	}
}

// HandleSingleton dispatches one named-singleton operation
func (m *CoreModule) HandleSingleton(operation string, params gateway.Params) (interface{}, error) {
	switch operation {
	case "get":
		name, err := stringParam(params, "name")
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		value, found := m.singletons[name]
		return map[string]interface{}{"value": value, "found": found}, nil

	case "set":
		name, err := stringParam(params, "name")
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		// First writer wins, matching the breaker registry's configuration rule
		if _, exists := m.singletons[name]; !exists {
			m.singletons[name] = params["value"]
		}
		return m.singletons[name], nil

	case "list":
		m.mu.Lock()
		defer m.mu.Unlock()
		names := make([]string, 0, len(m.singletons))
		for name := range m.singletons {
			names = append(names, name)
		}
		return names, nil

	default:
		return nil, fmt.Errorf("singleton module has no operation %q", operation)
	}
}

// HandleUtility dispatches one utility operation
func (m *CoreModule) HandleUtility(operation string, params gateway.Params) (interface{}, error) {
	switch operation {
	case "timestamp":
		return time.Now().UTC().Format(time.RFC3339Nano), nil

	case "echo":
		return params["value"], nil

	case "generate_id":
		buf := make([]byte, 16)
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		return hex.EncodeToString(buf), nil

	default:
		return nil, fmt.Errorf("utility module has no operation %q", operation)
	}
}

// HandleInit dispatches one initialization operation
func (m *CoreModule) HandleInit(operation string, params gateway.Params) (interface{}, error) {
	switch operation {
	case "status":
		return map[string]interface{}{
			"started_at":     m.startTime.UTC().Format(time.RFC3339),
			"uptime_seconds": time.Since(m.startTime).Seconds(),
		}, nil

	default:
		return nil, fmt.Errorf("initialization module has no operation %q", operation)
	}
}

// HandleDiagnostics dispatches one diagnostics operation
func (m *CoreModule) HandleDiagnostics(operation string, params gateway.Params) (interface{}, error) {
	switch operation {
	case "summary":
		return map[string]interface{}{
			"fast_path":      m.fastPath.Stats(),
			"breakers":       m.breakers.AllStates(),
			"uptime_seconds": time.Since(m.startTime).Seconds(),
		}, nil

	default:
		return nil, fmt.Errorf("diagnostics module has no operation %q", operation)
	}
}
