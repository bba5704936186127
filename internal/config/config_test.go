package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultConfigIsValid tests that the defaults pass validation
func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 3, cfg.Gateway.PromotionThreshold)
	assert.True(t, cfg.Gateway.FastPathEnabled)
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 30*time.Second, cfg.Breaker.CoolDown)
}

// TestLoadFromFile tests YAML loading over defaults
func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	content := `
server:
  port: 9090
gateway:
  fast_path_enabled: false
  promotion_threshold: 5
home_assistant:
  base_url: "http://ha.example:8123"
  token: "secret"
  timeout: 5s
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.False(t, cfg.Gateway.FastPathEnabled)
	assert.Equal(t, 5, cfg.Gateway.PromotionThreshold)
	assert.Equal(t, "http://ha.example:8123", cfg.HomeAssistant.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.HomeAssistant.Timeout)
	// Untouched sections keep defaults
	assert.Equal(t, "info", cfg.Logging.Level)
}

// TestEnvOverrides tests environment overrides applied after file values
func TestEnvOverrides(t *testing.T) {
	t.Setenv("GW_PORT", "7070")
	t.Setenv("GW_PROMOTION_THRESHOLD", "10")
	t.Setenv("HA_TOKEN", "env-token")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Gateway.PromotionThreshold)
	assert.Equal(t, "env-token", cfg.HomeAssistant.Token)
}

// TestValidateRejectsBadValues tests validation failures
func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"zero promotion threshold", func(c *Config) { c.Gateway.PromotionThreshold = 0 }},
		{"zero failure threshold", func(c *Config) { c.Breaker.FailureThreshold = 0 }},
		{"negative cool down", func(c *Config) { c.Breaker.CoolDown = -time.Second }},
		{"zero bucket capacity", func(c *Config) { c.RateLimit.Capacity = 0 }},
		{"empty base url", func(c *Config) { c.HomeAssistant.BaseURL = "" }},
		{"auth without secret", func(c *Config) { c.Auth.Enabled = true; c.Auth.SecretKey = "" }},
		{"cert without key", func(c *Config) { c.Server.TLSCertFile = "cert.pem" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// TestSnapshotOmitsSecrets tests that the CONFIG interface view never
// exposes tokens or keys
func TestSnapshotOmitsSecrets(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.HomeAssistant.Token = "very-secret"
	cfg.Auth.SecretKey = "also-secret"

	snapshot := cfg.Snapshot()
	for key, value := range snapshot {
		assert.NotEqual(t, "very-secret", value, "snapshot key %s leaks the HA token", key)
		assert.NotEqual(t, "also-secret", value, "snapshot key %s leaks the auth secret", key)
	}
}
