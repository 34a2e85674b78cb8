// Package config loads and validates the portal configuration using Viper.
//
// Configuration is layered: built-in defaults < YAML config file < environment
// variables. Environment variables use the CFP_ prefix (e.g., CFP_PLATFORM_BASE_URL
// overrides platform.base_url in the YAML). This layering allows the same binary to
// run with a config.yaml in local development and with pure environment variables
// in containerized deployments without recompilation or different binaries.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Platform     PlatformConfig     `mapstructure:"platform"`
	Session      SessionConfig      `mapstructure:"session"`
	Verification VerificationConfig `mapstructure:"verification"`
	Security     SecurityConfig     `mapstructure:"security"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
	Audit        AuditConfig        `mapstructure:"audit"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// DevMode relaxes secret requirements and marks cookies non-secure.
	// Never enable in production.
	DevMode bool `mapstructure:"dev_mode"`
}

// GetAddress returns the server address in host:port format
func (s *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PlatformConfig holds the connection settings for the CertifyPro platform API
type PlatformConfig struct {
	// BaseURL is the platform API root, including the /api prefix
	BaseURL string `mapstructure:"base_url"`
	// Timeout bounds every platform request end to end
	Timeout time.Duration `mapstructure:"timeout"`
}

// SessionConfig holds browser-session settings
type SessionConfig struct {
	// JWTSecret signs the session cookie. Required outside dev mode.
	JWTSecret string `mapstructure:"jwt_secret"`
	// CipherPassphrase derives the AES key sealing bearer tokens at rest.
	// Required outside dev mode.
	CipherPassphrase string `mapstructure:"cipher_passphrase"`
	// CipherSalt feeds key derivation; at least 16 bytes
	CipherSalt string `mapstructure:"cipher_salt"`
	// TTL is how long a session lives without re-login
	TTL time.Duration `mapstructure:"ttl"`
	// SweepInterval is how often expired sessions are collected
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// CookieName is the session cookie's name
	CookieName string `mapstructure:"cookie_name"`
	// CookieSecure marks the cookie HTTPS-only
	CookieSecure bool `mapstructure:"cookie_secure"`
}

// VerificationConfig tunes the public certificate verification surface
type VerificationConfig struct {
	// ExpiringSoonDays is the advisory window before expiry during which an
	// active certificate is labeled "Expiring Soon" (default 30)
	ExpiringSoonDays int `mapstructure:"expiring_soon_days"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting"`
	TLS          TLSConfig          `mapstructure:"tls"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
}

// RateLimitingConfig holds rate limiting configuration
type RateLimitingConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
	// AuthRequestsPerMinute is the tighter budget applied to login and
	// registration endpoints
	AuthRequestsPerMinute int `mapstructure:"auth_requests_per_minute"`
	// VerifyRequestsPerMinute is the budget for the unauthenticated public
	// verification endpoint
	VerifyRequestsPerMinute int `mapstructure:"verify_requests_per_minute"`
}

// TLSConfig holds TLS/HTTPS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig holds Prometheus metrics configuration
type MetricsConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	PrometheusPort int  `mapstructure:"prometheus_port"`
}

// AuditConfig holds audit event shipping configuration
type AuditConfig struct {
	// Enabled determines if audit events are recorded at all
	Enabled bool `mapstructure:"enabled"`
	// Webhook configures the optional external shipper; empty URL disables it
	Webhook AuditWebhookConfig `mapstructure:"webhook"`
}

// AuditWebhookConfig holds webhook shipper configuration
type AuditWebhookConfig struct {
	URL           string            `mapstructure:"url"`
	Headers       map[string]string `mapstructure:"headers"`
	TimeoutSecs   int               `mapstructure:"timeout_secs"`
	BatchSize     int               `mapstructure:"batch_size"`
	FlushInterval int               `mapstructure:"flush_interval_secs"`
}

// bindEnvVars explicitly binds environment variables to config keys.
// This is necessary because AutomaticEnv() doesn't work well with nested structs during Unmarshal.
// viper.BindEnv only errors when called with zero keys; since every key here is a non-empty
// hardcoded string, any error indicates a programming bug and is surfaced to the caller.
func bindEnvVars(v *viper.Viper) error {
	keys := []string{
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.dev_mode",

		// Platform
		"platform.base_url",
		"platform.timeout",

		// Session
		"session.jwt_secret",
		"session.cipher_passphrase",
		"session.cipher_salt",
		"session.ttl",
		"session.sweep_interval",
		"session.cookie_name",
		"session.cookie_secure",

		// Verification
		"verification.expiring_soon_days",

		// Security
		"security.cors.allowed_origins",
		"security.cors.allowed_methods",
		"security.rate_limiting.enabled",
		"security.rate_limiting.requests_per_minute",
		"security.rate_limiting.burst",
		"security.rate_limiting.auth_requests_per_minute",
		"security.rate_limiting.verify_requests_per_minute",
		"security.tls.enabled",
		"security.tls.cert_file",
		"security.tls.key_file",

		// Logging
		"logging.level",
		"logging.format",
		"logging.output",

		// Telemetry
		"telemetry.enabled",
		"telemetry.service_name",
		"telemetry.metrics.enabled",
		"telemetry.metrics.prometheus_port",

		// Audit
		"audit.enabled",
		"audit.webhook.url",
		"audit.webhook.timeout_secs",
		"audit.webhook.batch_size",
		"audit.webhook.flush_interval_secs",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env var %q: %w", key, err)
		}
	}
	return nil
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/certportal")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment variables
	}

	v.SetEnvPrefix("CFP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Expand ${VAR} references in sensitive fields so secrets can live in
	// infrastructure-managed environment variables.
	cfg.Session.JWTSecret = os.ExpandEnv(cfg.Session.JWTSecret)
	cfg.Session.CipherPassphrase = os.ExpandEnv(cfg.Session.CipherPassphrase)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.dev_mode", false)

	// Platform defaults
	v.SetDefault("platform.base_url", "http://localhost:8081/api")
	v.SetDefault("platform.timeout", "15s")

	// Session defaults
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("session.sweep_interval", "5m")
	v.SetDefault("session.cookie_name", "certportal_session")
	v.SetDefault("session.cookie_secure", true)

	// Verification defaults
	v.SetDefault("verification.expiring_soon_days", 30)

	// Security defaults
	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("security.rate_limiting.enabled", true)
	v.SetDefault("security.rate_limiting.requests_per_minute", 120)
	v.SetDefault("security.rate_limiting.burst", 20)
	v.SetDefault("security.rate_limiting.auth_requests_per_minute", 10)
	v.SetDefault("security.rate_limiting.verify_requests_per_minute", 30)
	v.SetDefault("security.tls.enabled", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.service_name", "certportal")
	v.SetDefault("telemetry.metrics.enabled", true)
	v.SetDefault("telemetry.metrics.prometheus_port", 9090)

	// Audit defaults
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.webhook.timeout_secs", 10)
	v.SetDefault("audit.webhook.batch_size", 50)
	v.SetDefault("audit.webhook.flush_interval_secs", 30)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Platform.BaseURL == "" {
		return fmt.Errorf("platform.base_url is required")
	}
	if !strings.HasPrefix(c.Platform.BaseURL, "http://") && !strings.HasPrefix(c.Platform.BaseURL, "https://") {
		return fmt.Errorf("platform.base_url must be an http(s) URL: %s", c.Platform.BaseURL)
	}

	// Secrets are only enforced outside dev mode; the session layer generates
	// throwaway ones in dev.
	if !c.Server.DevMode {
		if c.Session.JWTSecret == "" {
			return fmt.Errorf("session.jwt_secret is required (generate with: openssl rand -hex 32)")
		}
		if c.Session.CipherPassphrase == "" {
			return fmt.Errorf("session.cipher_passphrase is required")
		}
		if len(c.Session.CipherSalt) < 16 {
			return fmt.Errorf("session.cipher_salt must be at least 16 bytes")
		}
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}

	if c.Verification.ExpiringSoonDays < 0 {
		return fmt.Errorf("verification.expiring_soon_days cannot be negative")
	}

	if c.Security.TLS.Enabled {
		if c.Security.TLS.CertFile == "" {
			return fmt.Errorf("security.tls.cert_file is required when TLS is enabled")
		}
		if c.Security.TLS.KeyFile == "" {
			return fmt.Errorf("security.tls.key_file is required when TLS is enabled")
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	if c.Audit.Enabled && c.Audit.Webhook.URL != "" {
		if !strings.HasPrefix(c.Audit.Webhook.URL, "http://") && !strings.HasPrefix(c.Audit.Webhook.URL, "https://") {
			return fmt.Errorf("audit.webhook.url must be an http(s) URL: %s", c.Audit.Webhook.URL)
		}
	}

	return nil
}
