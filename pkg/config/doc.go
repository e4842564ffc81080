// Package config provides application configuration management from environment variables.
//
// # Overview
//
// Configuration starts from defaults, is optionally overlaid with a YAML file
// named by APNISEC_CONFIG_FILE, and is finally overridden by environment
// variables. LoadConfig validates the result; a missing JWT secret is fatal.
//
// # Configuration Structure
//
// Server settings:
//
//	APNISEC_HOST="0.0.0.0"
//	APNISEC_PORT="8080"
//	APNISEC_HEALTH_PORT="9090"
//	APNISEC_READ_TIMEOUT="15s"
//	APNISEC_WRITE_TIMEOUT="15s"
//	APNISEC_CORS_ORIGINS="https://app.example.com,https://admin.example.com"
//
// Auth and rate limit settings:
//
//	APNISEC_JWT_SECRET="change-me"  # required
//	APNISEC_LOGIN_TOKEN_TTL="168h"
//	APNISEC_BCRYPT_COST="10"
//	APNISEC_RATE_LIMIT="100"
//	APNISEC_RATE_WINDOW="15m"
//
// Storage settings:
//
//	APNISEC_STORE="postgres"  # memory, postgres
//	APNISEC_POSTGRES_URL="postgres://localhost/apnisec?sslmode=disable"
//	APNISEC_POSTGRES_MAX_CONNS="20"
//
// User cache settings:
//
//	APNISEC_USER_CACHE_ENABLED="true"
//	APNISEC_USER_CACHE_TTL="5m"
//	APNISEC_REDIS_URL="redis://localhost:6379/0"  # in-process LRU when unset
//
// Email settings:
//
//	APNISEC_RESEND_API_KEY="re_..."  # log-only notifier when unset
//	APNISEC_MAIL_FROM="ApniSec <onboarding@resend.dev>"
//
// Observability settings:
//
//	APNISEC_LOG_LEVEL="info"  # debug, info, warn, error
//	APNISEC_METRICS_ENABLED="true"
//	APNISEC_OTEL_ENABLED="true"
//	APNISEC_OTEL_ENDPOINT="otel-collector:4317"
//	APNISEC_OTEL_SAMPLE_RATIO="0.1"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	limiter := ratelimit.New(cfg.RateLimit.Limiter())
//	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout)
//
// # Related Packages
//
//   - pkg/storage: Uses storage configuration
//   - pkg/observability: Uses observability configuration
//   - pkg/ratelimit: Uses rate limit configuration
package config
