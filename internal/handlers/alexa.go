package handlers

import (
	"fmt"
	"strings"

	"github.com/dizzybeaver/lambda-execution-engine/internal/gateway"
	"github.com/dizzybeaver/lambda-execution-engine/internal/homeassistant"
)

// AlexaModule backs the ALEXA interface, translating smart-home directive
// operations into home-automation service calls. Directive names arrive as
// operation names; endpoint and payload arrive as parameters.
type AlexaModule struct {
	client *homeassistant.Client
}

// NewAlexaModule creates the module over the Home Assistant client
func NewAlexaModule(client *homeassistant.Client) *AlexaModule {
	return &AlexaModule{client: client}
}

// Handle dispatches one directive operation
func (m *AlexaModule) Handle(operation string, params gateway.Params) (interface{}, error) {
	endpointID, err := stringParam(params, "endpoint_id")
	if err != nil {
		return nil, err
	}
	entityID := endpointToEntity(endpointID)

	switch operation {
	case "TurnOn":
		return m.client.CallService("homeassistant", "turn_on", map[string]interface{}{
			"entity_id": entityID,
		})

	case "TurnOff":
		return m.client.CallService("homeassistant", "turn_off", map[string]interface{}{
			"entity_id": entityID,
		})

	case "SetBrightness":
		brightness, ok := params["brightness"].(float64)
		if !ok {
			return nil, fmt.Errorf("SetBrightness requires a numeric brightness")
		}
		return m.client.CallService("light", "turn_on", map[string]interface{}{
			"entity_id":      entityID,
			"brightness_pct": brightness,
		})

	case "SetTargetTemperature":
		target, ok := params["target_temperature"].(float64)
		if !ok {
			return nil, fmt.Errorf("SetTargetTemperature requires a numeric target")
		}
		return m.client.CallService("climate", "set_temperature", map[string]interface{}{
			"entity_id":   entityID,
			"temperature": target,
		})

	case "ReportState":
		return m.client.GetState(entityID)

	default:
		return nil, fmt.Errorf("alexa module has no directive %q", operation)
	}
}

// endpointToEntity maps a directive endpoint ID back to an entity ID.
// Endpoint IDs use '#' because '.' is not allowed in them.
func endpointToEntity(endpointID string) string {
	return strings.ReplaceAll(endpointID, "#", ".")
}
