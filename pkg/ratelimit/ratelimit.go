// Package ratelimit implements a per-key fixed-expiry admission filter.
//
// Each key gets a window that opens on its first request and lasts Window.
// Within the window at most Threshold requests are admitted; later requests
// are throttled without being counted. Expired windows are swept on every
// call, so an idle key never holds memory past its window plus one call.
//
// State lives in process memory behind a single mutex. It is not shared
// across instances and does not survive restarts.
package ratelimit

import (
	"sync"
	"time"
)

const (
	DefaultThreshold = 100
	DefaultWindow    = 15 * time.Minute
)

// Decision is the outcome of an admission check.
type Decision int

const (
	Allowed Decision = iota
	Throttled
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Throttled:
		return "throttled"
	default:
		return "unknown"
	}
}

// Config holds limiter parameters.
type Config struct {
	Threshold int
	Window    time.Duration
}

// DefaultConfig returns 100 requests per 15 minutes.
func DefaultConfig() Config {
	return Config{
		Threshold: DefaultThreshold,
		Window:    DefaultWindow,
	}
}

type entry struct {
	count     int
	expiresAt time.Time
}

// Limiter tracks request counts per key.
type Limiter struct {
	mu      sync.Mutex
	config  Config
	now     func() time.Time
	entries map[string]*entry
	closed  bool
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a limiter. Non-positive config values take the defaults.
func New(config Config, opts ...Option) *Limiter {
	if config.Threshold <= 0 {
		config.Threshold = DefaultThreshold
	}
	if config.Window <= 0 {
		config.Window = DefaultWindow
	}
	l := &Limiter{
		config:  config,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now reads the limiter's clock.
func (l *Limiter) Now() time.Time {
	return l.now()
}

// Config returns the effective parameters.
func (l *Limiter) Config() Config {
	return l.config
}

// Admit records a request for key and reports whether it may proceed.
func (l *Limiter) Admit(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return Throttled
	}

	now := l.now()
	l.sweep(now)

	e, ok := l.entries[key]
	if !ok {
		l.entries[key] = &entry{count: 1, expiresAt: now.Add(l.config.Window)}
		return Allowed
	}
	if e.count >= l.config.Threshold {
		return Throttled
	}
	e.count++
	return Allowed
}

// Status reports how many requests key has left in its window and when the
// window ends. A key with no live window reports the full threshold and a
// window starting now.
func (l *Limiter) Status(key string) (remaining int, resetAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if l.closed {
		return 0, now
	}
	if !ok || expired(e, now) {
		return l.config.Threshold, now.Add(l.config.Window)
	}
	remaining = l.config.Threshold - e.count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, e.expiresAt
}

// Reset forgets key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Close drops all state. A closed limiter throttles every request.
func (l *Limiter) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]*entry)
	l.closed = true
}

// sweep removes windows that have ended. Caller holds mu.
func (l *Limiter) sweep(now time.Time) {
	for key, e := range l.entries {
		if expired(e, now) {
			delete(l.entries, key)
		}
	}
}

// expired reports whether the window is over: it is live while now < expiresAt.
func expired(e *entry, now time.Time) bool {
	return !now.Before(e.expiresAt)
}
