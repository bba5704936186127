// Package homeassistant implements the REST and websocket client for the
// home-automation server. Every outbound call is admitted by a token bucket
// and guarded by the "home_assistant" circuit breaker, so a failing or slow
// server is cut off instead of burning invocation time.
package homeassistant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/websocket"

	"github.com/dizzybeaver/lambda-execution-engine/internal/breaker"
	"github.com/dizzybeaver/lambda-execution-engine/internal/config"
	"github.com/dizzybeaver/lambda-execution-engine/internal/errors"
	"github.com/dizzybeaver/lambda-execution-engine/internal/ratelimit"
	"github.com/dizzybeaver/lambda-execution-engine/pkg/logger"
)

// BreakerName is the registry name of the breaker guarding this upstream
const BreakerName = "home_assistant"

// Client talks to the home-automation server
type Client struct {
	baseURL string
	token   string
	wsURL   string

	httpClient *http.Client
	breakers   *breaker.Registry
	bucket     *ratelimit.TokenBucket
	threshold  int
	coolDown   time.Duration
	logger     *logger.Logger
}

// NewClient creates a Home Assistant client. bucket may be nil when rate
// limiting is disabled.
func NewClient(cfg config.HomeAssistantConfig, breakerCfg config.BreakerConfig, breakers *breaker.Registry, bucket *ratelimit.TokenBucket, log *logger.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		wsURL:      cfg.WebSocketURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breakers:   breakers,
		bucket:     bucket,
		threshold:  breakerCfg.FailureThreshold,
		coolDown:   breakerCfg.CoolDown,
		logger:     log.UpstreamLogger(cfg.BaseURL),
	}
}

// CallService invokes a Home Assistant service,
// e.g. domain "light", service "turn_on".
func (c *Client) CallService(domain, service string, data map[string]interface{}) (interface{}, error) {
	path := fmt.Sprintf("/api/services/%s/%s", domain, service)
	return c.guarded(func() (interface{}, error) {
		return c.doJSON(http.MethodPost, path, data)
	})
}

// GetState reads the current state of one entity
func (c *Client) GetState(entityID string) (interface{}, error) {
	path := "/api/states/" + entityID
	return c.guarded(func() (interface{}, error) {
		return c.doJSON(http.MethodGet, path, nil)
	})
}

// Ping checks API reachability
func (c *Client) Ping() (interface{}, error) {
	return c.guarded(func() (interface{}, error) {
		return c.doJSON(http.MethodGet, "/api/", nil)
	})
}

// guarded wraps an upstream call with rate-limit admission and the
// circuit breaker. Rate-limit rejections never reach the breaker; they are
// an admission decision, not an upstream failure.
func (c *Client) guarded(fn breaker.ProtectedFunc) (interface{}, error) {
	if c.bucket != nil && !c.bucket.Allow() {
		c.logger.Warn("Upstream call rejected by rate limiter")
		return nil, errors.NewRateLimitError(BreakerName)
	}
	return c.breakers.GetOrCreate(BreakerName, c.threshold, c.coolDown).Call(fn)
}

// doJSON performs one authenticated JSON request against the REST API
func (c *Client) doJSON(method, path string, body map[string]interface{}) (interface{}, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrCodeInternalError, "upstream", "failed to encode request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeInternalError, "upstream", "failed to build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeUpstreamUnavailable, "upstream",
			fmt.Sprintf("%s %s failed", method, path))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeUpstreamUnavailable, "upstream", "failed to read response body")
	}

	if resp.StatusCode >= 400 {
		return nil, errors.NewError(errors.ErrCodeUpstreamStatus, "upstream",
			fmt.Sprintf("%s %s returned %d", method, path, resp.StatusCode)).
			WithMetadata("status", resp.StatusCode)
	}

	if len(payload) == 0 {
		return nil, nil
	}

	var decoded interface{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeUpstreamStatus, "upstream", "failed to decode response body")
	}
	return decoded, nil
}

// SendWebSocket sends one message over the Home Assistant websocket API
// and returns the first reply. The connection authenticates with the same
// long-lived token, then performs a single request/response exchange.
func (c *Client) SendWebSocket(message map[string]interface{}) (interface{}, error) {
	if c.wsURL == "" {
		return nil, errors.NewError(errors.ErrCodeUpstreamUnavailable, "upstream", "websocket_url not configured")
	}

	return c.guarded(func() (interface{}, error) {
		conn, err := websocket.Dial(c.wsURL, "", c.baseURL)
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrCodeUpstreamUnavailable, "upstream", "websocket dial failed")
		}
		defer conn.Close()

		// Server greets with auth_required before accepting anything
		var greeting map[string]interface{}
		if err := websocket.JSON.Receive(conn, &greeting); err != nil {
			return nil, errors.WrapError(err, errors.ErrCodeUpstreamUnavailable, "upstream", "websocket greeting failed")
		}

		auth := map[string]interface{}{"type": "auth", "access_token": c.token}
		if err := websocket.JSON.Send(conn, auth); err != nil {
			return nil, errors.WrapError(err, errors.ErrCodeUpstreamUnavailable, "upstream", "websocket auth send failed")
		}

		var authResult map[string]interface{}
		if err := websocket.JSON.Receive(conn, &authResult); err != nil {
			return nil, errors.WrapError(err, errors.ErrCodeUpstreamUnavailable, "upstream", "websocket auth receive failed")
		}
		if authResult["type"] != "auth_ok" {
			return nil, errors.NewError(errors.ErrCodeAuthenticationFailed, "upstream", "websocket authentication rejected")
		}

		if err := websocket.JSON.Send(conn, message); err != nil {
			return nil, errors.WrapError(err, errors.ErrCodeUpstreamUnavailable, "upstream", "websocket send failed")
		}

		var reply interface{}
		if err := websocket.JSON.Receive(conn, &reply); err != nil {
			return nil, errors.WrapError(err, errors.ErrCodeUpstreamUnavailable, "upstream", "websocket receive failed")
		}
		return reply, nil
	})
}
