package gateway

import (
	"errors"
	"fmt"
	"testing"
	"time"

	gwerrors "github.com/dizzybeaver/lambda-execution-engine/internal/errors"
	"github.com/dizzybeaver/lambda-execution-engine/internal/metrics"
	"github.com/dizzybeaver/lambda-execution-engine/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestLogger creates a logger for gateway testing
func createTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stdout"})
	require.NoError(t, err)
	return log
}

// newTestRouter wires a router with a single CACHE route backed by an
// echoing handler, mirroring the smallest realistic route table.
func newTestRouter(t *testing.T, threshold int) *Router {
	t.Helper()

	registry := NewHandlerRegistry()
	registry.RegisterModule("cache_module", map[string]HandlerFunc{
		"handle": func(operation string, params Params) (interface{}, error) {
			return fmt.Sprintf("cache:%s:%v", operation, params["key"]), nil
		},
	})

	routes := NewRouteTable(map[InterfaceID]RouteEntry{
		InterfaceCache: {Module: "cache_module", EntryPoint: "handle"},
	})

	return NewRouter(routes, registry, NewFastPathCache(), threshold, nil, createTestLogger(t))
}

// TestPromotionDeterminism tests that exactly T dispatches promote a key
// and T-1 do not
func TestPromotionDeterminism(t *testing.T) {
	t.Parallel()

	const threshold = 3
	key := DispatchKey{Interface: InterfaceCache, Operation: "get"}

	router := newTestRouter(t, threshold)
	for i := 0; i < threshold-1; i++ {
		_, err := router.Dispatch(InterfaceCache, "get", Params{"key": "a"})
		require.NoError(t, err)
	}
	_, promoted := router.FastPath().Lookup(key)
	assert.False(t, promoted, "key must not be promoted after T-1 dispatches")

	_, err := router.Dispatch(InterfaceCache, "get", Params{"key": "a"})
	require.NoError(t, err)
	_, promoted = router.FastPath().Lookup(key)
	assert.True(t, promoted, "key must be promoted after exactly T dispatches")
}

// TestFastPathTransparency tests that promoted dispatches return results
// identical to the slow path
func TestFastPathTransparency(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, 2)

	slow, err := router.Dispatch(InterfaceCache, "get", Params{"key": "a"})
	require.NoError(t, err)

	// Second dispatch promotes, third runs on the fast path
	_, err = router.Dispatch(InterfaceCache, "get", Params{"key": "a"})
	require.NoError(t, err)

	fast, err := router.Dispatch(InterfaceCache, "get", Params{"key": "a"})
	require.NoError(t, err)
	assert.Equal(t, slow, fast, "fast path must be an optimization, not a behavior change")
}

// TestPromotionBypassesResolution tests the documented scenario: with
// threshold 3, the fourth and later dispatches for a key never resolve
// through the route table again
func TestPromotionBypassesResolution(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, 3)

	for i := 0; i < 3; i++ {
		_, err := router.Dispatch(InterfaceCache, "get", Params{"key": "a"})
		require.NoError(t, err)
	}
	resolutionsAtPromotion := router.ResolutionCount()

	for i := 0; i < 5; i++ {
		_, err := router.Dispatch(InterfaceCache, "get", Params{"key": "a"})
		require.NoError(t, err)
	}
	assert.Equal(t, resolutionsAtPromotion, router.ResolutionCount(),
		"resolution count must not increase after promotion")
	assert.Equal(t, int64(8), router.CallCount(DispatchKey{Interface: InterfaceCache, Operation: "get"}),
		"call counter increments on every dispatch regardless of hit or miss")
}

// TestDistinctOperationsPromoteIndependently tests that counting is per
// dispatch key, not per interface
func TestDistinctOperationsPromoteIndependently(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, 2)

	_, _ = router.Dispatch(InterfaceCache, "get", Params{})
	_, _ = router.Dispatch(InterfaceCache, "set", Params{})

	_, getPromoted := router.FastPath().Lookup(DispatchKey{Interface: InterfaceCache, Operation: "get"})
	_, setPromoted := router.FastPath().Lookup(DispatchKey{Interface: InterfaceCache, Operation: "set"})
	assert.False(t, getPromoted)
	assert.False(t, setPromoted)

	_, _ = router.Dispatch(InterfaceCache, "get", Params{})
	_, getPromoted = router.FastPath().Lookup(DispatchKey{Interface: InterfaceCache, Operation: "get"})
	_, setPromoted = router.FastPath().Lookup(DispatchKey{Interface: InterfaceCache, Operation: "set"})
	assert.True(t, getPromoted, "get reached its threshold")
	assert.False(t, setPromoted, "set did not")
}

// TestUnknownInterface tests that an interface absent from the route table
// always fails, regardless of promotion state
func TestUnknownInterface(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, 3)

	for i := 0; i < 5; i++ {
		_, err := router.Dispatch(InterfaceWebSocket, "send", Params{})
		require.Error(t, err)
		assert.Equal(t, gwerrors.ErrCodeUnknownInterface, gwerrors.GetErrorCode(err))
	}
}

// TestResolutionFailureIsDistinct tests that a route entry pointing at a
// missing module or entry point fails with a resolution error, not an
// unknown-interface error
func TestResolutionFailureIsDistinct(t *testing.T) {
	t.Parallel()

	registry := NewHandlerRegistry()
	registry.RegisterModule("cache_module", map[string]HandlerFunc{
		"handle": func(string, Params) (interface{}, error) { return nil, nil },
	})

	routes := NewRouteTable(map[InterfaceID]RouteEntry{
		InterfaceCache:   {Module: "cache_module", EntryPoint: "missing_entry"},
		InterfaceLogging: {Module: "missing_module", EntryPoint: "handle"},
	})
	router := NewRouter(routes, registry, NewFastPathCache(), 3, nil, createTestLogger(t))

	_, err := router.Dispatch(InterfaceCache, "get", Params{})
	assert.Equal(t, gwerrors.ErrCodeResolutionFailed, gwerrors.GetErrorCode(err))

	_, err = router.Dispatch(InterfaceLogging, "log", Params{})
	assert.Equal(t, gwerrors.ErrCodeResolutionFailed, gwerrors.GetErrorCode(err))

	assert.Equal(t, int64(0), router.ResolutionCount(),
		"failed resolutions must not count as resolutions")
}

// TestHandlerFailureIsWrapped tests that handler errors carry dispatch
// context and preserve the original cause
func TestHandlerFailureIsWrapped(t *testing.T) {
	t.Parallel()

	cause := errors.New("bad parameters")

	registry := NewHandlerRegistry()
	registry.RegisterModule("cache_module", map[string]HandlerFunc{
		"handle": func(string, Params) (interface{}, error) { return nil, cause },
	})
	routes := NewRouteTable(map[InterfaceID]RouteEntry{
		InterfaceCache: {Module: "cache_module", EntryPoint: "handle"},
	})
	router := NewRouter(routes, registry, NewFastPathCache(), 1, nil, createTestLogger(t))

	// Slow path wrap
	_, err := router.Dispatch(InterfaceCache, "get", Params{})
	assert.Equal(t, gwerrors.ErrCodeHandlerFailed, gwerrors.GetErrorCode(err))
	assert.ErrorIs(t, err, cause, "original error must be preserved as the cause")

	// Fast path wrap (promoted at threshold 1)
	_, err = router.Dispatch(InterfaceCache, "get", Params{})
	assert.Equal(t, gwerrors.ErrCodeHandlerFailed, gwerrors.GetErrorCode(err))
	assert.ErrorIs(t, err, cause)
}

// TestEmptyOperationRejected tests the non-empty operation precondition
func TestEmptyOperationRejected(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, 3)
	_, err := router.Dispatch(InterfaceCache, "", Params{})
	assert.Equal(t, gwerrors.ErrCodeInvalidOperation, gwerrors.GetErrorCode(err))
}

// TestClearDoesNotResetCounters tests the documented asymmetry: a cleared
// key whose counter already crossed the threshold is reinstalled on its
// next dispatch
func TestClearDoesNotResetCounters(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, 2)
	key := DispatchKey{Interface: InterfaceCache, Operation: "get"}

	_, _ = router.Dispatch(InterfaceCache, "get", Params{})
	_, _ = router.Dispatch(InterfaceCache, "get", Params{})
	_, promoted := router.FastPath().Lookup(key)
	require.True(t, promoted)

	removed := router.FastPath().Clear()
	assert.Equal(t, 1, removed)
	_, promoted = router.FastPath().Lookup(key)
	require.False(t, promoted)
	assert.Equal(t, int64(2), router.CallCount(key), "clear must not reset call counters")

	_, err := router.Dispatch(InterfaceCache, "get", Params{})
	require.NoError(t, err)
	_, promoted = router.FastPath().Lookup(key)
	assert.True(t, promoted, "key at threshold should be reinstalled on its next dispatch")
}

// TestDisableSuppressesWithoutClearing tests that disabling the fast path
// keeps entries but forces full resolution until re-enabled
func TestDisableSuppressesWithoutClearing(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, 1)
	key := DispatchKey{Interface: InterfaceCache, Operation: "get"}

	_, _ = router.Dispatch(InterfaceCache, "get", Params{})
	_, promoted := router.FastPath().Lookup(key)
	require.True(t, promoted)

	router.FastPath().Disable()

	_, hit := router.FastPath().Lookup(key)
	assert.False(t, hit, "disabled cache must report misses")

	resolutionsBefore := router.ResolutionCount()
	_, err := router.Dispatch(InterfaceCache, "get", Params{})
	require.NoError(t, err)
	assert.Equal(t, resolutionsBefore+1, router.ResolutionCount(),
		"disabled fast path must fall back to full resolution")

	router.FastPath().Enable()
	stats := router.FastPath().Stats()
	assert.Equal(t, 1, stats.Size, "disable must not clear entries")

	resolutionsBefore = router.ResolutionCount()
	_, err = router.Dispatch(InterfaceCache, "get", Params{})
	require.NoError(t, err)
	assert.Equal(t, resolutionsBefore, router.ResolutionCount(),
		"re-enabled cache should serve the surviving entry")
}

// TestFastPathStats tests the administrative snapshot
func TestFastPathStats(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, 1)

	_, _ = router.Dispatch(InterfaceCache, "get", Params{})
	_, _ = router.Dispatch(InterfaceCache, "set", Params{})

	stats := router.FastPath().Stats()
	assert.True(t, stats.Enabled)
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, []string{"CACHE.get", "CACHE.set"}, stats.CachedKeys)
}

// TestRouterEmitsMeasurements tests the metrics side channel
func TestRouterEmitsMeasurements(t *testing.T) {
	t.Parallel()

	recorder := metrics.New()

	registry := NewHandlerRegistry()
	registry.RegisterModule("cache_module", map[string]HandlerFunc{
		"handle": func(string, Params) (interface{}, error) { return "ok", nil },
	})
	routes := NewRouteTable(map[InterfaceID]RouteEntry{
		InterfaceCache: {Module: "cache_module", EntryPoint: "handle"},
	})
	router := NewRouter(routes, registry, NewFastPathCache(), 3, recorder, createTestLogger(t))

	_, _ = router.Dispatch(InterfaceCache, "get", Params{})
	_, _ = router.Dispatch(InterfaceWebSocket, "send", Params{})

	assert.Equal(t, int64(2), recorder.GetTotalCalls())
	assert.Equal(t, int64(1), recorder.GetTotalErrors(), "failed dispatches are recorded as errors")
}

// panickingRecorder always panics when reporting
type panickingRecorder struct{}

func (panickingRecorder) RecordCall(string, time.Duration, bool) {
	panic("recorder down")
}

// TestRouterSwallowsReportingFailure tests that the side channel never
// raises back into the dispatch caller
func TestRouterSwallowsReportingFailure(t *testing.T) {
	t.Parallel()

	registry := NewHandlerRegistry()
	registry.RegisterModule("cache_module", map[string]HandlerFunc{
		"handle": func(string, Params) (interface{}, error) { return "ok", nil },
	})
	routes := NewRouteTable(map[InterfaceID]RouteEntry{
		InterfaceCache: {Module: "cache_module", EntryPoint: "handle"},
	})
	router := NewRouter(routes, registry, NewFastPathCache(), 3, panickingRecorder{}, createTestLogger(t))

	result, err := router.Dispatch(InterfaceCache, "get", Params{})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

// TestValidateRoutes tests startup wiring validation
func TestValidateRoutes(t *testing.T) {
	t.Parallel()

	registry := NewHandlerRegistry()
	registry.RegisterModule("cache_module", map[string]HandlerFunc{
		"handle": func(string, Params) (interface{}, error) { return nil, nil },
	})

	valid := NewRouteTable(map[InterfaceID]RouteEntry{
		InterfaceCache: {Module: "cache_module", EntryPoint: "handle"},
	})
	assert.NoError(t, ValidateRoutes(valid, registry))

	broken := NewRouteTable(map[InterfaceID]RouteEntry{
		InterfaceCache:   {Module: "cache_module", EntryPoint: "handle"},
		InterfaceLogging: {Module: "log_module", EntryPoint: "handle"},
	})
	err := ValidateRoutes(broken, registry)
	assert.Equal(t, gwerrors.ErrCodeResolutionFailed, gwerrors.GetErrorCode(err))
}

// TestGatewayContext tests the assembled process context
func TestGatewayContext(t *testing.T) {
	t.Parallel()

	registry := NewHandlerRegistry()
	registry.RegisterModule("cache_module", map[string]HandlerFunc{
		"handle": func(op string, _ Params) (interface{}, error) { return op, nil },
	})
	routes := NewRouteTable(map[InterfaceID]RouteEntry{
		InterfaceCache: {Module: "cache_module", EntryPoint: "handle"},
	})

	gw := New(routes, registry, Options{PromotionThreshold: 2, FastPathEnabled: true}, createTestLogger(t))

	result, err := gw.Dispatch(InterfaceCache, "get", Params{})
	require.NoError(t, err)
	assert.Equal(t, "get", result)

	assert.NotNil(t, gw.Breakers)
	assert.Equal(t, int64(1), gw.Metrics.GetTotalCalls(), "gateway wires dispatch metrics to its recorder")
}
