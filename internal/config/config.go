package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Config represents the main configuration structure
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Gateway       GatewayConfig       `yaml:"gateway"`
	Breaker       BreakerConfig       `yaml:"circuit_breaker"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	HomeAssistant HomeAssistantConfig `yaml:"home_assistant"`
	Auth          AuthConfig          `yaml:"auth"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig contains HTTP server specific configuration
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	TLSCertFile  string        `yaml:"tls_cert_file"`
	TLSKeyFile   string        `yaml:"tls_key_file"`
}

// GatewayConfig contains dispatch engine configuration
type GatewayConfig struct {
	FastPathEnabled    bool `yaml:"fast_path_enabled"`
	PromotionThreshold int  `yaml:"promotion_threshold"`
}

// BreakerConfig contains default circuit breaker configuration. The first
// configuration a breaker name is created with wins for the process.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	CoolDown         time.Duration `yaml:"cool_down"`
}

// RateLimitConfig contains token bucket configuration for upstream calls
type RateLimitConfig struct {
	Enabled         bool    `yaml:"enabled"`
	Capacity        int     `yaml:"capacity"`
	RefillPerSecond float64 `yaml:"refill_per_second"`
}

// HomeAssistantConfig contains the home-automation server connection
type HomeAssistantConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Token        string        `yaml:"token"`
	WebSocketURL string        `yaml:"websocket_url"`
	Timeout      time.Duration `yaml:"timeout"`
}

// AuthConfig contains JWT validation for the admin surface
type AuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	SecretKey string `yaml:"secret_key"`
	Issuer    string `yaml:"issuer"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	File   string `yaml:"file"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Gateway: GatewayConfig{
			FastPathEnabled:    true,
			PromotionThreshold: 3,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			CoolDown:         30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:         true,
			Capacity:        10,
			RefillPerSecond: 5,
		},
		HomeAssistant: HomeAssistantConfig{
			BaseURL: "http://homeassistant.local:8123",
			Timeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// LoadFromFile loads configuration from a YAML file over the defaults
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	config.applyEnv()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// Load loads configuration from GW_CONFIG_FILE when set, otherwise from
// defaults, always applying environment overrides last.
func Load() (*Config, error) {
	if file := os.Getenv("GW_CONFIG_FILE"); file != "" {
		return LoadFromFile(file)
	}

	config := DefaultConfig()
	config.applyEnv()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// applyEnv overrides configuration fields from environment variables
func (c *Config) applyEnv() {
	if port := os.Getenv("GW_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if level := os.Getenv("GW_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if threshold := os.Getenv("GW_PROMOTION_THRESHOLD"); threshold != "" {
		if t, err := strconv.Atoi(threshold); err == nil {
			c.Gateway.PromotionThreshold = t
		}
	}
	if enabled := os.Getenv("GW_FAST_PATH_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			c.Gateway.FastPathEnabled = b
		}
	}
	if baseURL := os.Getenv("HA_BASE_URL"); baseURL != "" {
		c.HomeAssistant.BaseURL = baseURL
	}
	if token := os.Getenv("HA_TOKEN"); token != "" {
		c.HomeAssistant.Token = token
	}
	if wsURL := os.Getenv("HA_WEBSOCKET_URL"); wsURL != "" {
		c.HomeAssistant.WebSocketURL = wsURL
	}
	if secret := os.Getenv("GW_AUTH_SECRET"); secret != "" {
		c.Auth.SecretKey = secret
		c.Auth.Enabled = true
	}
}

// Validate validates the configuration for correctness
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Gateway.PromotionThreshold < 1 {
		return fmt.Errorf("gateway.promotion_threshold must be positive: %d", c.Gateway.PromotionThreshold)
	}

	if c.Breaker.FailureThreshold < 1 {
		return fmt.Errorf("circuit_breaker.failure_threshold must be positive: %d", c.Breaker.FailureThreshold)
	}
	if c.Breaker.CoolDown <= 0 {
		return fmt.Errorf("circuit_breaker.cool_down must be positive: %v", c.Breaker.CoolDown)
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Capacity < 1 {
			return fmt.Errorf("rate_limit.capacity must be positive: %d", c.RateLimit.Capacity)
		}
		if c.RateLimit.RefillPerSecond <= 0 {
			return fmt.Errorf("rate_limit.refill_per_second must be positive: %f", c.RateLimit.RefillPerSecond)
		}
	}

	if c.HomeAssistant.BaseURL == "" {
		return fmt.Errorf("home_assistant.base_url must not be empty")
	}
	if c.HomeAssistant.Timeout <= 0 {
		return fmt.Errorf("home_assistant.timeout must be positive: %v", c.HomeAssistant.Timeout)
	}

	if c.Auth.Enabled && c.Auth.SecretKey == "" {
		return fmt.Errorf("auth.secret_key must be set when auth is enabled")
	}

	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		return fmt.Errorf("tls_cert_file and tls_key_file must be set together")
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

// Snapshot returns a read-only view of non-secret configuration, served by
// the CONFIG interface module.
func (c *Config) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"server.port":                  c.Server.Port,
		"gateway.fast_path_enabled":    c.Gateway.FastPathEnabled,
		"gateway.promotion_threshold":  c.Gateway.PromotionThreshold,
		"circuit_breaker.threshold":    c.Breaker.FailureThreshold,
		"circuit_breaker.cool_down":    c.Breaker.CoolDown.String(),
		"rate_limit.enabled":           c.RateLimit.Enabled,
		"rate_limit.capacity":          c.RateLimit.Capacity,
		"rate_limit.refill_per_second": c.RateLimit.RefillPerSecond,
		"home_assistant.base_url":      c.HomeAssistant.BaseURL,
		"home_assistant.timeout":       c.HomeAssistant.Timeout.String(),
		"logging.level":                c.Logging.Level,
	}
}
