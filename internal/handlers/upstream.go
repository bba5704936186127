package handlers

import (
	"fmt"

	"github.com/dizzybeaver/lambda-execution-engine/internal/gateway"
	"github.com/dizzybeaver/lambda-execution-engine/internal/homeassistant"
)

// UpstreamModule backs the HOME_ASSISTANT, HTTP_CLIENT and WEBSOCKET
// interfaces with calls through the guarded Home Assistant client.
type UpstreamModule struct {
	client *homeassistant.Client
}

// NewUpstreamModule creates the module over the Home Assistant client
func NewUpstreamModule(client *homeassistant.Client) *UpstreamModule {
	return &UpstreamModule{client: client}
}

// HandleHomeAssistant dispatches one home-automation operation
func (m *UpstreamModule) HandleHomeAssistant(operation string, params gateway.Params) (interface{}, error) {
	switch operation {
	case "call_service":
		domain, err := stringParam(params, "domain")
		if err != nil {
			return nil, err
		}
		service, err := stringParam(params, "service")
		if err != nil {
			return nil, err
		}
		data, _ := params["data"].(map[string]interface{})
		return m.client.CallService(domain, service, data)

	case "get_state":
		entityID, err := stringParam(params, "entity_id")
		if err != nil {
			return nil, err
		}
		return m.client.GetState(entityID)

	case "ping":
		return m.client.Ping()

	default:
		return nil, fmt.Errorf("home assistant module has no operation %q", operation)
	}
}

// HandleHTTP dispatches one generic HTTP client operation. All traffic
// runs through the same guarded upstream client, so the breaker and rate
// limiter apply here too.
func (m *UpstreamModule) HandleHTTP(operation string, params gateway.Params) (interface{}, error) {
	switch operation {
	case "get_state":
		// Alias kept for callers addressing the upstream generically
		return m.HandleHomeAssistant("get_state", params)

	case "post_service":
		return m.HandleHomeAssistant("call_service", params)

	default:
		return nil, fmt.Errorf("http client module has no operation %q", operation)
	}
}

// HandleWebSocket dispatches one websocket operation
func (m *UpstreamModule) HandleWebSocket(operation string, params gateway.Params) (interface{}, error) {
	switch operation {
	case "send":
		message, ok := params["message"].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("websocket send requires a message object")
		}
		return m.client.SendWebSocket(message)

	default:
		return nil, fmt.Errorf("websocket module has no operation %q", operation)
	}
}
