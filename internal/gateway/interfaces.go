// Package gateway implements the operation-dispatch engine: a static route
// table from interface identifiers to handler entry points, a promotion-based
// fast-path cache, and the dispatch router tying them together. All mutable
// state is owned by an explicit Gateway context created at process start and
// persists across invocations under warm reuse.
package gateway

// InterfaceID names a category of operations routable through the gateway.
// The set is closed and established at process start; adding an interface
// requires adding both the constant and its route entry.
type InterfaceID string

const (
	InterfaceCache          InterfaceID = "CACHE"
	InterfaceLogging        InterfaceID = "LOGGING"
	InterfaceMetrics        InterfaceID = "METRICS"
	InterfaceSecurity       InterfaceID = "SECURITY"
	InterfaceConfig         InterfaceID = "CONFIG"
	InterfaceSingleton      InterfaceID = "SINGLETON"
	InterfaceCircuitBreaker InterfaceID = "CIRCUIT_BREAKER"
	InterfaceHTTPClient     InterfaceID = "HTTP_CLIENT"
	InterfaceUtility        InterfaceID = "UTILITY"
	InterfaceInitialization InterfaceID = "INITIALIZATION"
	InterfaceHomeAssistant  InterfaceID = "HOME_ASSISTANT"
	InterfaceAlexa          InterfaceID = "ALEXA"
	InterfaceWebSocket      InterfaceID = "WEBSOCKET"
	InterfaceDiagnostics    InterfaceID = "DIAGNOSTICS"
)

// AllInterfaces lists every known interface identifier
func AllInterfaces() []InterfaceID {
	return []InterfaceID{
		InterfaceCache,
		InterfaceLogging,
		InterfaceMetrics,
		InterfaceSecurity,
		InterfaceConfig,
		InterfaceSingleton,
		InterfaceCircuitBreaker,
		InterfaceHTTPClient,
		InterfaceUtility,
		InterfaceInitialization,
		InterfaceHomeAssistant,
		InterfaceAlexa,
		InterfaceWebSocket,
		InterfaceDiagnostics,
	}
}

// Params carries the free-form parameters of one dispatch request.
// The router never validates them; that is the resolved handler's job.
type Params map[string]interface{}

// HandlerFunc handles every operation under one interface. The operation
// name is a free-form string interpreted by the handler itself.
type HandlerFunc func(operation string, params Params) (interface{}, error)

// DispatchKey identifies a unique routable operation, used both for call
// counting and fast-path indexing.
type DispatchKey struct {
	Interface InterfaceID
	Operation string
}

// String returns the canonical "INTERFACE.operation" form
func (k DispatchKey) String() string {
	return string(k.Interface) + "." + k.Operation
}
