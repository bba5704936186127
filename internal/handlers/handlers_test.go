package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dizzybeaver/lambda-execution-engine/internal/breaker"
	"github.com/dizzybeaver/lambda-execution-engine/internal/config"
	"github.com/dizzybeaver/lambda-execution-engine/internal/gateway"
	"github.com/dizzybeaver/lambda-execution-engine/internal/homeassistant"
	"github.com/dizzybeaver/lambda-execution-engine/internal/metrics"
	"github.com/dizzybeaver/lambda-execution-engine/pkg/logger"
)

func createTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stdout"})
	require.NoError(t, err)
	return log
}

// TestCacheModuleOperations tests the CACHE secondary dispatcher
func TestCacheModuleOperations(t *testing.T) {
	t.Parallel()

	module := NewCacheModule()

	result, err := module.Handle("get", gateway.Params{"key": "a"})
	require.NoError(t, err)
	assert.Equal(t, false, result.(map[string]interface{})["found"])

	_, err = module.Handle("set", gateway.Params{"key": "a", "value": "hello"})
	require.NoError(t, err)

	result, err = module.Handle("get", gateway.Params{"key": "a"})
	require.NoError(t, err)
	got := result.(map[string]interface{})
	assert.Equal(t, true, got["found"])
	assert.Equal(t, "hello", got["value"])

	deleted, err := module.Handle("delete", gateway.Params{"key": "a"})
	require.NoError(t, err)
	assert.Equal(t, true, deleted)

	_, err = module.Handle("explode", gateway.Params{})
	assert.Error(t, err, "unknown operations are the handler's responsibility to reject")
}

// TestCacheModuleTTL tests per-entry expiry
func TestCacheModuleTTL(t *testing.T) {
	t.Parallel()

	module := NewCacheModule()
	base := time.Now()
	current := base
	module.now = func() time.Time { return current }

	_, err := module.Handle("set", gateway.Params{"key": "a", "value": 1, "ttl_seconds": 10.0})
	require.NoError(t, err)

	current = base.Add(5 * time.Second)
	result, _ := module.Handle("get", gateway.Params{"key": "a"})
	assert.Equal(t, true, result.(map[string]interface{})["found"])

	current = base.Add(11 * time.Second)
	result, _ = module.Handle("get", gateway.Params{"key": "a"})
	assert.Equal(t, false, result.(map[string]interface{})["found"], "entry should expire after its TTL")
}

// TestSingletonFirstWriterWins tests the SINGLETON first-wins rule
func TestSingletonFirstWriterWins(t *testing.T) {
	t.Parallel()

	module := NewCoreModule(map[string]interface{}{}, gateway.NewFastPathCache(), breaker.NewRegistry(nil, createTestLogger(t)))

	first, err := module.HandleSingleton("set", gateway.Params{"name": "session", "value": "one"})
	require.NoError(t, err)
	assert.Equal(t, "one", first)

	second, err := module.HandleSingleton("set", gateway.Params{"name": "session", "value": "two"})
	require.NoError(t, err)
	assert.Equal(t, "one", second, "second writer must not replace the singleton")
}

// TestSecurityModuleValidatesTokens tests HS256 validation and issuer check
func TestSecurityModuleValidatesTokens(t *testing.T) {
	t.Parallel()

	module := NewSecurityModule("sekrit", "gateway")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "gateway",
		"sub": "admin",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("sekrit"))
	require.NoError(t, err)

	result, err := module.Handle("validate_token", gateway.Params{"token": signed})
	require.NoError(t, err)
	assert.Equal(t, true, result.(map[string]interface{})["valid"])

	// Wrong secret
	badToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"iss": "gateway"})
	badSigned, err := badToken.SignedString([]byte("other"))
	require.NoError(t, err)
	_, err = module.Handle("validate_token", gateway.Params{"token": badSigned})
	assert.Error(t, err)

	// Wrong issuer
	wrongIssuer := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"iss": "somebody"})
	wrongSigned, err := wrongIssuer.SignedString([]byte("sekrit"))
	require.NoError(t, err)
	_, err = module.Handle("validate_token", gateway.Params{"token": wrongSigned})
	assert.Error(t, err)
}

// TestAlexaModuleTranslatesDirectives tests directive-to-service mapping
func TestAlexaModuleTranslatesDirectives(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	log := createTestLogger(t)
	client := homeassistant.NewClient(
		config.HomeAssistantConfig{BaseURL: server.URL, Token: "tok", Timeout: 2 * time.Second},
		config.BreakerConfig{FailureThreshold: 3, CoolDown: time.Minute},
		breaker.NewRegistry(nil, log), nil, log,
	)
	module := NewAlexaModule(client)

	_, err := module.Handle("TurnOn", gateway.Params{"endpoint_id": "light#kitchen"})
	require.NoError(t, err)
	assert.Equal(t, "/api/services/homeassistant/turn_on", gotPath)
	assert.Equal(t, "light.kitchen", gotBody["entity_id"], "endpoint IDs map '#' back to '.'")

	_, err = module.Handle("SetBrightness", gateway.Params{"endpoint_id": "light#kitchen", "brightness": 40.0})
	require.NoError(t, err)
	assert.Equal(t, "/api/services/light/turn_on", gotPath)
	assert.Equal(t, 40.0, gotBody["brightness_pct"])

	_, err = module.Handle("SelfDestruct", gateway.Params{"endpoint_id": "light#kitchen"})
	assert.Error(t, err)
}

// TestDefaultRoutesCoverEveryInterface tests that the static route table
// resolves for all 14 interface identifiers
func TestDefaultRoutesCoverEveryInterface(t *testing.T) {
	t.Parallel()

	log := createTestLogger(t)
	cfg := config.DefaultConfig()
	breakers := breaker.NewRegistry(nil, log)
	recorder := metrics.New()
	fastPath := gateway.NewFastPathCache()
	client := homeassistant.NewClient(cfg.HomeAssistant, cfg.Breaker, breakers, nil, log)

	registry := BuildRegistry(Deps{
		Config:   cfg,
		Client:   client,
		Breakers: breakers,
		Metrics:  recorder,
		FastPath: fastPath,
		Logger:   log,
	})

	routes := DefaultRoutes()
	for _, iface := range gateway.AllInterfaces() {
		_, ok := routes[iface]
		assert.True(t, ok, "route table must cover interface %s", iface)
	}

	table := gateway.NewRouteTable(routes)
	assert.NoError(t, gateway.ValidateRoutes(table, registry))
}

// TestDispatchThroughBuiltinModules tests an end-to-end dispatch over the
// assembled registry
func TestDispatchThroughBuiltinModules(t *testing.T) {
	t.Parallel()

	log := createTestLogger(t)
	cfg := config.DefaultConfig()
	breakers := breaker.NewRegistry(nil, log)
	fastPath := gateway.NewFastPathCache()
	client := homeassistant.NewClient(cfg.HomeAssistant, cfg.Breaker, breakers, nil, log)

	registry := BuildRegistry(Deps{
		Config:   cfg,
		Client:   client,
		Breakers: breakers,
		Metrics:  metrics.New(),
		FastPath: fastPath,
		Logger:   log,
	})
	router := gateway.NewRouter(gateway.NewRouteTable(DefaultRoutes()), registry, fastPath, 3, nil, log)

	_, err := router.Dispatch(gateway.InterfaceCache, "set", gateway.Params{"key": "a", "value": 1.0})
	require.NoError(t, err)

	result, err := router.Dispatch(gateway.InterfaceCache, "get", gateway.Params{"key": "a"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.(map[string]interface{})["value"])

	echo, err := router.Dispatch(gateway.InterfaceUtility, "echo", gateway.Params{"value": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", echo)

	cfgValue, err := router.Dispatch(gateway.InterfaceConfig, "get", gateway.Params{"key": "gateway.promotion_threshold"})
	require.NoError(t, err)
	assert.Equal(t, 3, cfgValue.(map[string]interface{})["value"])
}
