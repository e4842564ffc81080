package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/apnisec/issuetracker/pkg/storage"
)

// LRUCache implements UserCache in process memory.
type LRUCache struct {
	cache *lru.LRU[string, storage.User]
}

// NewLRUCache creates a cache holding at most size users for ttl each.
func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	if size < 10 {
		size = 10
	}
	return &LRUCache{
		cache: lru.NewLRU[string, storage.User](size, nil, ttl),
	}
}

func (c *LRUCache) Name() string { return "lru" }

func (c *LRUCache) Get(ctx context.Context, email string) (*storage.User, error) {
	u, ok := c.cache.Get(userKey(email))
	if !ok {
		return nil, ErrCacheMiss
	}
	return &u, nil
}

func (c *LRUCache) Set(ctx context.Context, user *storage.User) error {
	c.cache.Add(userKey(user.Email), *user)
	return nil
}

func (c *LRUCache) Delete(ctx context.Context, email string) error {
	c.cache.Remove(userKey(email))
	return nil
}

// Len returns the number of cached users.
func (c *LRUCache) Len() int {
	return c.cache.Len()
}
