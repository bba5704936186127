package handlers

import (
	"fmt"

	"github.com/dizzybeaver/lambda-execution-engine/internal/breaker"
	"github.com/dizzybeaver/lambda-execution-engine/internal/config"
	"github.com/dizzybeaver/lambda-execution-engine/internal/gateway"
	"github.com/dizzybeaver/lambda-execution-engine/internal/homeassistant"
	"github.com/dizzybeaver/lambda-execution-engine/internal/metrics"
	"github.com/dizzybeaver/lambda-execution-engine/pkg/logger"
)

// Module locators named by the route table
const (
	ModuleCache         = "cache_module"
	ModuleObservability = "observability_module"
	ModuleCore          = "core_module"
	ModuleSecurity      = "security_module"
	ModuleProtection    = "protection_module"
	ModuleUpstream      = "upstream_module"
	ModuleAlexa         = "alexa_module"
)

// Deps carries the collaborators the built-in modules are wired to
type Deps struct {
	Config   *config.Config
	Client   *homeassistant.Client
	Breakers *breaker.Registry
	Metrics  *metrics.Metrics
	FastPath *gateway.FastPathCache
	Logger   *logger.Logger
}

// BuildRegistry constructs the compile-time handler registry holding every
// built-in module's entry points.
func BuildRegistry(deps Deps) *gateway.HandlerRegistry {
	cache := NewCacheModule()
	observability := NewObservabilityModule(deps.Logger, deps.Metrics)
	core := NewCoreModule(deps.Config.Snapshot(), deps.FastPath, deps.Breakers)
	security := NewSecurityModule(deps.Config.Auth.SecretKey, deps.Config.Auth.Issuer)
	protection := NewProtectionModule(deps.Breakers)
	upstream := NewUpstreamModule(deps.Client)
	alexa := NewAlexaModule(deps.Client)

	registry := gateway.NewHandlerRegistry()
	registry.RegisterModule(ModuleCache, map[string]gateway.HandlerFunc{
		"handle": cache.Handle,
	})
	registry.RegisterModule(ModuleObservability, map[string]gateway.HandlerFunc{
		"handle_log":     observability.HandleLog,
		"handle_metrics": observability.HandleMetrics,
	})
	registry.RegisterModule(ModuleCore, map[string]gateway.HandlerFunc{
		"handle_config":      core.HandleConfig,
		"handle_singleton":   core.HandleSingleton,
		"handle_utility":     core.HandleUtility,
		"handle_init":        core.HandleInit,
		"handle_diagnostics": core.HandleDiagnostics,
	})
	registry.RegisterModule(ModuleSecurity, map[string]gateway.HandlerFunc{
		"handle": security.Handle,
	})
	registry.RegisterModule(ModuleProtection, map[string]gateway.HandlerFunc{
		"handle": protection.Handle,
	})
	registry.RegisterModule(ModuleUpstream, map[string]gateway.HandlerFunc{
		"handle_ha":   upstream.HandleHomeAssistant,
		"handle_http": upstream.HandleHTTP,
		"handle_ws":   upstream.HandleWebSocket,
	})
	registry.RegisterModule(ModuleAlexa, map[string]gateway.HandlerFunc{
		"handle": alexa.Handle,
	})
	return registry
}

// DefaultRoutes returns the static route table entries covering every
// interface identifier. Supplied once at startup; not runtime-mutable.
func DefaultRoutes() map[gateway.InterfaceID]gateway.RouteEntry {
	return map[gateway.InterfaceID]gateway.RouteEntry{
		gateway.InterfaceCache:          {Module: ModuleCache, EntryPoint: "handle"},
		gateway.InterfaceLogging:        {Module: ModuleObservability, EntryPoint: "handle_log"},
		gateway.InterfaceMetrics:        {Module: ModuleObservability, EntryPoint: "handle_metrics"},
		gateway.InterfaceSecurity:       {Module: ModuleSecurity, EntryPoint: "handle"},
		gateway.InterfaceConfig:         {Module: ModuleCore, EntryPoint: "handle_config"},
		gateway.InterfaceSingleton:      {Module: ModuleCore, EntryPoint: "handle_singleton"},
		gateway.InterfaceCircuitBreaker: {Module: ModuleProtection, EntryPoint: "handle"},
		gateway.InterfaceHTTPClient:     {Module: ModuleUpstream, EntryPoint: "handle_http"},
		gateway.InterfaceUtility:        {Module: ModuleCore, EntryPoint: "handle_utility"},
		gateway.InterfaceInitialization: {Module: ModuleCore, EntryPoint: "handle_init"},
		gateway.InterfaceHomeAssistant:  {Module: ModuleUpstream, EntryPoint: "handle_ha"},
		gateway.InterfaceAlexa:          {Module: ModuleAlexa, EntryPoint: "handle"},
		gateway.InterfaceWebSocket:      {Module: ModuleUpstream, EntryPoint: "handle_ws"},
		gateway.InterfaceDiagnostics:    {Module: ModuleCore, EntryPoint: "handle_diagnostics"},
	}
}

// stringParam extracts a required string parameter
func stringParam(params gateway.Params, key string) (string, error) {
	value, ok := params[key].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	return value, nil
}
