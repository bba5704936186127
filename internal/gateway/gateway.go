package gateway

import (
	"github.com/dizzybeaver/lambda-execution-engine/internal/breaker"
	"github.com/dizzybeaver/lambda-execution-engine/internal/metrics"
	"github.com/dizzybeaver/lambda-execution-engine/pkg/logger"
)

// Gateway is the explicit context object owning all process-wide dispatch
// state: router, fast-path cache, call counters, breaker registry and
// metrics. One instance is created by the process entry point and injected
// into every caller; there are no package-level singletons. Under warm
// reuse the instance, and therefore its state, survives across sequential
// invocations.
type Gateway struct {
	Router   *Router
	FastPath *FastPathCache
	Breakers *breaker.Registry
	Metrics  *metrics.Metrics
}

// Options configures a Gateway
type Options struct {
	// PromotionThreshold is the call count that promotes a dispatch key
	// to the fast path. Values below one use the default.
	PromotionThreshold int
	// FastPathEnabled controls the initial fast-path state
	FastPathEnabled bool
}

// New assembles a Gateway over the given route table and handler registry
func New(routes *RouteTable, registry *HandlerRegistry, opts Options, log *logger.Logger) *Gateway {
	recorder := metrics.New()

	fastPath := NewFastPathCache()
	if !opts.FastPathEnabled {
		fastPath.Disable()
	}

	return &Gateway{
		Router:   NewRouter(routes, registry, fastPath, opts.PromotionThreshold, recorder, log),
		FastPath: fastPath,
		Breakers: breaker.NewRegistry(recorder, log),
		Metrics:  recorder,
	}
}

// Assemble creates a Gateway whose handler registry is built against the
// gateway's own shared components. The build callback receives the gateway
// with FastPath, Breakers and Metrics populated and returns the registry the
// router resolves from. Use this when handler modules need access to the
// same fast path, breakers or metrics the router uses.
func Assemble(routes *RouteTable, opts Options, log *logger.Logger, build func(*Gateway) *HandlerRegistry) *Gateway {
	recorder := metrics.New()

	fastPath := NewFastPathCache()
	if !opts.FastPathEnabled {
		fastPath.Disable()
	}

	gw := &Gateway{
		FastPath: fastPath,
		Breakers: breaker.NewRegistry(recorder, log),
		Metrics:  recorder,
	}
	gw.Router = NewRouter(routes, build(gw), fastPath, opts.PromotionThreshold, recorder, log)
	return gw
}

// Dispatch routes one operation through the gateway's router
func (g *Gateway) Dispatch(iface InterfaceID, operation string, params Params) (interface{}, error) {
	return g.Router.Dispatch(iface, operation, params)
}
