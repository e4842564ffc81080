package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no record matches the lookup key.
	ErrNotFound = errors.New("storage: record not found")
	// ErrConflict is returned when an insert violates a uniqueness constraint.
	ErrConflict = errors.New("storage: record already exists")
)

// User is a stored account. Email is the unique lookup key.
type User struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	ResetToken   *string    `json:"-"`
	ResetExpires *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CredentialStore persists user accounts keyed by email.
type CredentialStore interface {
	// FindByEmail returns ErrNotFound when no user has the given email.
	FindByEmail(ctx context.Context, email string) (*User, error)
	// Insert returns ErrConflict when the email is already taken.
	Insert(ctx context.Context, name, email, passwordHash string) error
	UpdatePassword(ctx context.Context, email, passwordHash string) error
	UpdateName(ctx context.Context, email, name string) error
}

// HealthChecker is implemented by backends that can report liveness.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Config for storage backend
type Config struct {
	Type string `yaml:"type"` // "memory", "postgres"

	// PostgreSQL config
	PostgresURL         string        `yaml:"postgres_url"`
	PostgresMaxConns    int           `yaml:"postgres_max_conns"`
	PostgresMinConns    int           `yaml:"postgres_min_conns"`
	PostgresTimeout     time.Duration `yaml:"postgres_timeout"`
	PostgresMaxLifetime time.Duration `yaml:"postgres_max_lifetime"`

	// Redis config (optional user cache)
	RedisURL        string `yaml:"redis_url"`
	RedisPassword   string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db"`
	RedisMaxRetries int    `yaml:"redis_max_retries"`
	RedisPoolSize   int    `yaml:"redis_pool_size"`

	// User cache config
	UserCacheEnabled bool          `yaml:"user_cache_enabled"`
	UserCacheTTL     time.Duration `yaml:"user_cache_ttl"`
	UserCacheSize    int           `yaml:"user_cache_size"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Type:                "memory",
		PostgresMaxConns:    20,
		PostgresMinConns:    2,
		PostgresTimeout:     10 * time.Second,
		PostgresMaxLifetime: 30 * time.Minute,
		RedisDB:             0,
		RedisMaxRetries:     3,
		RedisPoolSize:       10,
		UserCacheEnabled:    true,
		UserCacheTTL:        5 * time.Minute,
		UserCacheSize:       1024,
	}
}
