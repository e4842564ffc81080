// Package cache provides a read-through user cache in front of any
// storage.CredentialStore.
//
// Two backends are available: RedisCache, shared between processes, and
// LRUCache, an in-process expirable LRU. Cache failures never fail a request;
// CachedStore logs them and falls through to the underlying store.
package cache

import (
	"context"
	"errors"

	"github.com/apnisec/issuetracker/pkg/storage"
)

// ErrCacheMiss is returned by UserCache.Get when the email is not cached.
var ErrCacheMiss = errors.New("cache miss")

// UserCache stores user records keyed by email.
type UserCache interface {
	Get(ctx context.Context, email string) (*storage.User, error)
	Set(ctx context.Context, user *storage.User) error
	Delete(ctx context.Context, email string) error
	// Name identifies the backend in logs and metrics.
	Name() string
}

func userKey(email string) string {
	return "user:" + email
}
