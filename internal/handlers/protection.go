package handlers

import (
	"fmt"

	"github.com/dizzybeaver/lambda-execution-engine/internal/breaker"
	"github.com/dizzybeaver/lambda-execution-engine/internal/gateway"
)

// ProtectionModule backs the CIRCUIT_BREAKER interface, exposing the
// breaker registry's administrative surface through the gateway.
type ProtectionModule struct {
	breakers *breaker.Registry
}

// NewProtectionModule creates the module over the process breaker registry
func NewProtectionModule(breakers *breaker.Registry) *ProtectionModule {
	return &ProtectionModule{breakers: breakers}
}

// Handle dispatches one circuit breaker operation
func (m *ProtectionModule) Handle(operation string, params gateway.Params) (interface{}, error) {
	switch operation {
	case "states":
		return m.breakers.AllStates(), nil

	case "state":
		name, err := stringParam(params, "name")
		if err != nil {
			return nil, err
		}
		states := m.breakers.AllStates()
		snap, found := states[name]
		if !found {
			return map[string]interface{}{"found": false}, nil
		}
		return map[string]interface{}{"found": true, "state": snap}, nil

	case "reset_all":
		m.breakers.ResetAll()
		return true, nil

	default:
		return nil, fmt.Errorf("circuit breaker module has no operation %q", operation)
	}
}
