package gateway

import (
	"sync"
	"time"

	"github.com/dizzybeaver/lambda-execution-engine/internal/errors"
	"github.com/dizzybeaver/lambda-execution-engine/internal/metrics"
	"github.com/dizzybeaver/lambda-execution-engine/pkg/logger"
)

// Router is the public dispatch entry point. It routes a logical
// (interface, operation) request to its handler, promoting hot keys to the
// fast path once their call count crosses the promotion threshold.
type Router struct {
	routes   *RouteTable
	registry *HandlerRegistry
	fastPath *FastPathCache
	recorder metrics.Recorder
	logger   *logger.Logger

	threshold int

	counters    map[DispatchKey]int64
	resolutions int64
	countersMu  sync.Mutex
}

// NewRouter creates a dispatch router over the given route table and
// handler registry. A threshold below one falls back to the default.
func NewRouter(routes *RouteTable, registry *HandlerRegistry, fastPath *FastPathCache, threshold int, recorder metrics.Recorder, log *logger.Logger) *Router {
	if threshold < 1 {
		threshold = DefaultPromotionThreshold
	}
	return &Router{
		routes:    routes,
		registry:  registry,
		fastPath:  fastPath,
		recorder:  recorder,
		logger:    log.GatewayLogger(),
		threshold: threshold,
		counters:  make(map[DispatchKey]int64),
	}
}

// Dispatch routes one operation to its handler and returns the result.
// Parameters are passed through unvalidated; validation belongs to the
// resolved handler.
func (rt *Router) Dispatch(iface InterfaceID, operation string, params Params) (interface{}, error) {
	if operation == "" {
		return nil, errors.NewError(errors.ErrCodeInvalidOperation, "gateway", "operation name must not be empty")
	}

	key := DispatchKey{Interface: iface, Operation: operation}
	count := rt.incrementCounter(key)

	start := time.Now()
	result, err := rt.dispatch(key, count, params)
	rt.report("dispatch:"+key.String(), time.Since(start), err == nil)

	return result, err
}

func (rt *Router) dispatch(key DispatchKey, count int64, params Params) (interface{}, error) {
	// Fast path: invoke the cached handler reference directly
	if entry, ok := rt.fastPath.Lookup(key); ok {
		result, err := entry.Handler(key.Operation, params)
		if err != nil {
			return nil, errors.NewHandlerError(string(key.Interface), key.Operation, err)
		}
		return result, nil
	}

	// Slow path: resolve through the route table
	route, ok := rt.routes.Lookup(key.Interface)
	if !ok {
		return nil, errors.NewUnknownInterfaceError(string(key.Interface))
	}

	handler, err := rt.registry.Resolve(route.Module, route.EntryPoint)
	if err != nil {
		return nil, errors.NewResolutionError(string(key.Interface), route.Module, route.EntryPoint, err)
	}
	rt.countResolution()

	if count >= int64(rt.threshold) {
		rt.fastPath.Install(key, FastPathEntry{
			Handler:    handler,
			Module:     route.Module,
			EntryPoint: route.EntryPoint,
		})
		rt.logger.WithFields(map[string]interface{}{
			"key":        key.String(),
			"call_count": count,
		}).Debug("Dispatch key promoted to fast path")
	}

	result, err := handler(key.Operation, params)
	if err != nil {
		return nil, errors.NewHandlerError(string(key.Interface), key.Operation, err)
	}
	return result, nil
}

// incrementCounter bumps the per-key call counter and returns the new value
func (rt *Router) incrementCounter(key DispatchKey) int64 {
	rt.countersMu.Lock()
	defer rt.countersMu.Unlock()

	rt.counters[key]++
	return rt.counters[key]
}

func (rt *Router) countResolution() {
	rt.countersMu.Lock()
	defer rt.countersMu.Unlock()
	rt.resolutions++
}

// CallCount returns the number of dispatch attempts recorded for a key
func (rt *Router) CallCount(key DispatchKey) int64 {
	rt.countersMu.Lock()
	defer rt.countersMu.Unlock()
	return rt.counters[key]
}

// ResolutionCount is an instrumentation hook counting successful slow-path
// handler resolutions. It stops increasing for a key once that key is
// promoted; failed resolutions are not counted.
func (rt *Router) ResolutionCount() int64 {
	rt.countersMu.Lock()
	defer rt.countersMu.Unlock()
	return rt.resolutions
}

// ResetCounters zeroes all call counters. Counters are otherwise
// monotonically increasing; clearing the fast-path cache does not touch
// them.
func (rt *Router) ResetCounters() {
	rt.countersMu.Lock()
	defer rt.countersMu.Unlock()
	rt.counters = make(map[DispatchKey]int64)
	rt.resolutions = 0
}

// FastPath exposes the administrative surface of the cache
func (rt *Router) FastPath() *FastPathCache {
	return rt.fastPath
}

// PromotionThreshold returns the configured promotion threshold
func (rt *Router) PromotionThreshold() int {
	return rt.threshold
}

// report emits a dispatch measurement. Best-effort: a failing recorder is
// swallowed and never surfaces to the dispatch caller.
func (rt *Router) report(target string, duration time.Duration, success bool) {
	if rt.recorder == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			rt.logger.WithField("panic", r).Debug("Metrics recorder panicked, measurement discarded")
		}
	}()
	rt.recorder.RecordCall(target, duration, success)
}
