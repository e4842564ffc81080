package cache

import (
	"context"
	"errors"
	"sync"

	"github.com/apnisec/issuetracker/pkg/observability"
	"github.com/apnisec/issuetracker/pkg/storage"
)

// Observer is told about every cache lookup.
type Observer func(backend string, hit bool)

// CachedStore is a read-through CredentialStore. Only successful lookups are
// cached; writes invalidate the email's entry after the store accepts them.
//
// A fill is dropped when any invalidation happened between the store read and
// the cache write, so a lookup racing a password change never re-caches the
// old record. fillMu orders fills against invalidations.
type CachedStore struct {
	store    storage.CredentialStore
	cache    UserCache
	logger   *observability.Logger
	observer Observer

	fillMu     sync.Mutex
	generation uint64
}

// Option configures a CachedStore.
type Option func(*CachedStore)

// WithObserver registers a lookup observer, typically a metrics counter.
func WithObserver(o Observer) Option {
	return func(s *CachedStore) { s.observer = o }
}

// NewCachedStore wraps store with cache.
func NewCachedStore(store storage.CredentialStore, cache UserCache, logger *observability.Logger, opts ...Option) *CachedStore {
	s := &CachedStore{
		store:  store,
		cache:  cache,
		logger: logger.WithField("cache", cache.Name()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CachedStore) FindByEmail(ctx context.Context, email string) (*storage.User, error) {
	u, err := s.cache.Get(ctx, email)
	if err == nil {
		s.observe(true)
		return u, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		s.logger.WithError(err).Warn("User cache read failed")
	}
	s.observe(false)

	gen := s.currentGeneration()
	u, err = s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, gen, u)
	return u, nil
}

func (s *CachedStore) Insert(ctx context.Context, name, email, passwordHash string) error {
	if err := s.store.Insert(ctx, name, email, passwordHash); err != nil {
		return err
	}
	s.invalidate(ctx, email)
	return nil
}

func (s *CachedStore) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	if err := s.store.UpdatePassword(ctx, email, passwordHash); err != nil {
		return err
	}
	s.invalidate(ctx, email)
	return nil
}

func (s *CachedStore) UpdateName(ctx context.Context, email, name string) error {
	if err := s.store.UpdateName(ctx, email, name); err != nil {
		return err
	}
	s.invalidate(ctx, email)
	return nil
}

// HealthCheck delegates to the wrapped store when it supports health checks.
func (s *CachedStore) HealthCheck(ctx context.Context) error {
	if hc, ok := s.store.(storage.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (s *CachedStore) currentGeneration() uint64 {
	s.fillMu.Lock()
	defer s.fillMu.Unlock()
	return s.generation
}

// fill caches u unless an invalidation ran since gen was read.
func (s *CachedStore) fill(ctx context.Context, gen uint64, u *storage.User) {
	s.fillMu.Lock()
	defer s.fillMu.Unlock()
	if s.generation != gen {
		return
	}
	if err := s.cache.Set(ctx, u); err != nil {
		s.logger.WithError(err).Warn("User cache write failed")
	}
}

func (s *CachedStore) invalidate(ctx context.Context, email string) {
	s.fillMu.Lock()
	defer s.fillMu.Unlock()
	s.generation++
	if err := s.cache.Delete(ctx, email); err != nil {
		s.logger.WithError(err).WithField("email", email).Warn("User cache invalidation failed")
	}
}

func (s *CachedStore) observe(hit bool) {
	if s.observer != nil {
		s.observer(s.cache.Name(), hit)
	}
}
