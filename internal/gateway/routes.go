package gateway

import (
	"fmt"
	"sync"

	"github.com/dizzybeaver/lambda-execution-engine/internal/errors"
)

// RouteEntry names the module and entry point responsible for every
// operation under one interface.
type RouteEntry struct {
	Module     string `json:"module"`
	EntryPoint string `json:"entry_point"`
}

// RouteTable is a static, immutable mapping from interface identifier to
// its route entry. Built once at startup, read-only thereafter.
type RouteTable struct {
	entries map[InterfaceID]RouteEntry
}

// NewRouteTable builds an immutable route table from the given entries
func NewRouteTable(entries map[InterfaceID]RouteEntry) *RouteTable {
	copied := make(map[InterfaceID]RouteEntry, len(entries))
	for iface, entry := range entries {
		copied[iface] = entry
	}
	return &RouteTable{entries: copied}
}

// Lookup returns the route entry for an interface
func (rt *RouteTable) Lookup(iface InterfaceID) (RouteEntry, bool) {
	entry, ok := rt.entries[iface]
	return entry, ok
}

// Size returns the number of route entries
func (rt *RouteTable) Size() int {
	return len(rt.entries)
}

// HandlerRegistry is the compile-time function table the route table
// resolves against: module locator to entry-point name to handler. It
// replaces the dynamic module import of earlier designs; resolution cost
// is an indirect lookup through this table, which the fast path still
// amortizes into a direct handler reference.
type HandlerRegistry struct {
	modules map[string]map[string]HandlerFunc
	mu      sync.RWMutex
}

// NewHandlerRegistry creates an empty handler registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		modules: make(map[string]map[string]HandlerFunc),
	}
}

// RegisterModule installs a module's entry points. Registering the same
// locator twice merges entry points; last registration wins per name.
func (hr *HandlerRegistry) RegisterModule(locator string, entryPoints map[string]HandlerFunc) {
	hr.mu.Lock()
	defer hr.mu.Unlock()

	module, exists := hr.modules[locator]
	if !exists {
		module = make(map[string]HandlerFunc, len(entryPoints))
		hr.modules[locator] = module
	}
	for name, fn := range entryPoints {
		module[name] = fn
	}
}

// Resolve locates the handler behind a route entry. A missing module and a
// missing entry point both fail resolution; the caller distinguishes this
// from an interface with no route entry at all.
func (hr *HandlerRegistry) Resolve(module, entryPoint string) (HandlerFunc, error) {
	hr.mu.RLock()
	defer hr.mu.RUnlock()

	entries, ok := hr.modules[module]
	if !ok {
		return nil, fmt.Errorf("module %s not registered", module)
	}
	fn, ok := entries[entryPoint]
	if !ok {
		return nil, fmt.Errorf("module %s has no entry point %s", module, entryPoint)
	}
	return fn, nil
}

// ModuleCount returns the number of registered modules
func (hr *HandlerRegistry) ModuleCount() int {
	hr.mu.RLock()
	defer hr.mu.RUnlock()
	return len(hr.modules)
}

// ValidateRoutes checks that every route entry resolves against the
// registry. Run once at startup to catch wiring mistakes before traffic.
func ValidateRoutes(rt *RouteTable, hr *HandlerRegistry) error {
	for iface, entry := range rt.entries {
		if _, err := hr.Resolve(entry.Module, entry.EntryPoint); err != nil {
			return errors.NewResolutionError(string(iface), entry.Module, entry.EntryPoint, err)
		}
	}
	return nil
}
