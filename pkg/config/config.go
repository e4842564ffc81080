package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/apnisec/issuetracker/pkg/observability"
	"github.com/apnisec/issuetracker/pkg/ratelimit"
	"github.com/apnisec/issuetracker/pkg/storage"
)

// ConfigFileEnv names the variable pointing at an optional YAML file. Values
// from the file are applied first; environment variables override them.
const ConfigFileEnv = "APNISEC_CONFIG_FILE"

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Token and password settings
	Auth AuthConfig `yaml:"auth"`

	// Per-client request limits
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Storage configuration
	Storage storage.Config `yaml:"storage"`

	// Outbound email
	Mail MailConfig `yaml:"mail"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	CORSOrigins     []string      `yaml:"cors_origins"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// AuthConfig holds token signing and password hashing settings.
type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	LoginTokenTTL time.Duration `yaml:"login_token_ttl"`
	BcryptCost    int           `yaml:"bcrypt_cost"`
}

// RateLimitConfig holds the fixed-window limiter settings.
type RateLimitConfig struct {
	Threshold int           `yaml:"threshold"`
	Window    time.Duration `yaml:"window"`
}

// Limiter converts the settings into limiter parameters.
func (c RateLimitConfig) Limiter() ratelimit.Config {
	return ratelimit.Config{Threshold: c.Threshold, Window: c.Window}
}

// MailConfig holds the email provider settings. An empty API key selects the
// log-only notifier.
type MailConfig struct {
	ResendAPIKey string        `yaml:"resend_api_key"`
	From         string        `yaml:"from"`
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel string `yaml:"log_level"`

	// Metrics
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// OpenTelemetry
	OTelEnabled        bool    `yaml:"otel_enabled"`
	OTelEndpoint       string  `yaml:"otel_endpoint"`
	OTelServiceName    string  `yaml:"otel_service_name"`
	OTelServiceVersion string  `yaml:"otel_service_version"`
	OTelInsecure       bool    `yaml:"otel_insecure"` // Use insecure gRPC connection
	OTelSampleRatio    float64 `yaml:"otel_sample_ratio"`
}

// Level returns the parsed log level.
func (c ObservabilityConfig) Level() observability.LogLevel {
	return observability.ParseLevel(c.LogLevel)
}

// OTel converts the settings into tracer provider options.
func (c ObservabilityConfig) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        c.OTelEnabled,
		Endpoint:       c.OTelEndpoint,
		ServiceName:    c.OTelServiceName,
		ServiceVersion: c.OTelServiceVersion,
		Insecure:       c.OTelInsecure,
		SampleRatio:    c.OTelSampleRatio,
	}
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    1 << 20,
			HealthPort:      "9090",
		},
		Auth: AuthConfig{
			LoginTokenTTL: 7 * 24 * time.Hour,
			BcryptCost:    10,
		},
		RateLimit: RateLimitConfig{
			Threshold: ratelimit.DefaultThreshold,
			Window:    ratelimit.DefaultWindow,
		},
		Storage: storage.DefaultConfig(),
		Mail: MailConfig{
			From:    "ApniSec <onboarding@resend.dev>",
			BaseURL: "https://api.resend.com",
			Timeout: 10 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "apnisec-issuetracker",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
			OTelSampleRatio:    1,
		},
	}
}

// LoadConfig loads configuration from the optional YAML file and environment
// variables
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.loadServerConfig()
	cfg.loadAuthConfig()
	cfg.loadStorageConfig()
	cfg.loadMailConfig()
	cfg.loadObservabilityConfig()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile overlays values from a YAML file onto the current configuration.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// loadServerConfig loads server configuration from environment
func (c *Config) loadServerConfig() {
	s := &c.Server
	s.Host = getEnv("APNISEC_HOST", s.Host)
	s.Port = getEnv("APNISEC_PORT", s.Port)
	s.ReadTimeout = getEnvDuration("APNISEC_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("APNISEC_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("APNISEC_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("APNISEC_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.MaxBodyBytes = getEnvInt64("APNISEC_MAX_BODY_BYTES", s.MaxBodyBytes)
	s.CORSOrigins = getEnvList("APNISEC_CORS_ORIGINS", s.CORSOrigins)
	s.HealthPort = getEnv("APNISEC_HEALTH_PORT", s.HealthPort)
}

// loadAuthConfig loads token, password and rate limit settings from environment
func (c *Config) loadAuthConfig() {
	c.Auth.JWTSecret = getEnv("APNISEC_JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.LoginTokenTTL = getEnvDuration("APNISEC_LOGIN_TOKEN_TTL", c.Auth.LoginTokenTTL)
	c.Auth.BcryptCost = getEnvInt("APNISEC_BCRYPT_COST", c.Auth.BcryptCost)

	c.RateLimit.Threshold = getEnvInt("APNISEC_RATE_LIMIT", c.RateLimit.Threshold)
	c.RateLimit.Window = getEnvDuration("APNISEC_RATE_WINDOW", c.RateLimit.Window)
}

// loadStorageConfig loads storage configuration from environment
func (c *Config) loadStorageConfig() {
	s := &c.Storage
	s.Type = strings.ToLower(getEnv("APNISEC_STORE", s.Type))

	// PostgreSQL config
	s.PostgresURL = getEnv("APNISEC_POSTGRES_URL", s.PostgresURL)
	if maxConns := getEnvInt("APNISEC_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		s.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt("APNISEC_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		s.PostgresMinConns = minConns
	}
	if timeout := getEnvDuration("APNISEC_POSTGRES_TIMEOUT", 0); timeout > 0 {
		s.PostgresTimeout = timeout
	}

	// Redis config
	s.RedisURL = getEnv("APNISEC_REDIS_URL", s.RedisURL)
	s.RedisPassword = getEnv("APNISEC_REDIS_PASSWORD", s.RedisPassword)
	if redisDB := getEnvInt("APNISEC_REDIS_DB", -1); redisDB >= 0 {
		s.RedisDB = redisDB
	}
	if redisPoolSize := getEnvInt("APNISEC_REDIS_POOL_SIZE", 0); redisPoolSize > 0 {
		s.RedisPoolSize = redisPoolSize
	}

	// User cache config
	s.UserCacheEnabled = getEnvBool("APNISEC_USER_CACHE_ENABLED", s.UserCacheEnabled)
	s.UserCacheTTL = getEnvDuration("APNISEC_USER_CACHE_TTL", s.UserCacheTTL)
	if size := getEnvInt("APNISEC_USER_CACHE_SIZE", 0); size > 0 {
		s.UserCacheSize = size
	}
}

// loadMailConfig loads email provider settings from environment
func (c *Config) loadMailConfig() {
	c.Mail.ResendAPIKey = getEnv("APNISEC_RESEND_API_KEY", c.Mail.ResendAPIKey)
	c.Mail.From = getEnv("APNISEC_MAIL_FROM", c.Mail.From)
	c.Mail.BaseURL = getEnv("APNISEC_RESEND_BASE_URL", c.Mail.BaseURL)
	c.Mail.Timeout = getEnvDuration("APNISEC_MAIL_TIMEOUT", c.Mail.Timeout)
}

// loadObservabilityConfig loads observability configuration from environment
func (c *Config) loadObservabilityConfig() {
	o := &c.Observability
	o.LogLevel = getEnv("APNISEC_LOG_LEVEL", o.LogLevel)
	o.MetricsEnabled = getEnvBool("APNISEC_METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("APNISEC_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("APNISEC_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("APNISEC_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("APNISEC_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("APNISEC_OTEL_INSECURE", o.OTelInsecure)
	o.OTelSampleRatio = getEnvFloat("APNISEC_OTEL_SAMPLE_RATIO", o.OTelSampleRatio)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("JWT secret is required (set APNISEC_JWT_SECRET)")
	}
	if c.Auth.LoginTokenTTL <= 0 {
		return fmt.Errorf("login token TTL must be positive")
	}

	if c.RateLimit.Threshold <= 0 {
		return fmt.Errorf("rate limit threshold must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}

	// Validate storage config based on type
	switch c.Storage.Type {
	case "memory":
	case "postgres":
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be memory or postgres)", c.Storage.Type)
	}

	if c.Mail.ResendAPIKey != "" && c.Mail.From == "" {
		return fmt.Errorf("mail sender is required when an email API key is set")
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma-separated environment variable or a default
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
