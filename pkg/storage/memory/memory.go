// Package memory provides map-backed stores for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/apnisec/issuetracker/pkg/issues"
	"github.com/apnisec/issuetracker/pkg/storage"
)

// Option configures a store.
type Option func(*clock)

type clock struct {
	now func() time.Time
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *clock) { c.now = now }
}

func newClock(opts []Option) clock {
	c := clock{now: time.Now}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// UserStore implements storage.CredentialStore.
type UserStore struct {
	clock
	mu     sync.RWMutex
	nextID int64
	users  map[string]*storage.User
}

// NewUserStore returns an empty user store.
func NewUserStore(opts ...Option) *UserStore {
	return &UserStore{
		clock: newClock(opts),
		users: make(map[string]*storage.User),
	}
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[email]
	if !ok {
		return nil, storage.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *UserStore) Insert(ctx context.Context, name, email, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[email]; ok {
		return storage.ErrConflict
	}
	s.nextID++
	now := s.now()
	s.users[email] = &storage.User{
		ID:           s.nextID,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return nil
}

func (s *UserStore) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	return s.update(email, func(u *storage.User) { u.PasswordHash = passwordHash })
}

func (s *UserStore) UpdateName(ctx context.Context, email, name string) error {
	return s.update(email, func(u *storage.User) { u.Name = name })
}

func (s *UserStore) update(email string, fn func(*storage.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[email]
	if !ok {
		return storage.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = s.now()
	return nil
}

// HealthCheck always succeeds.
func (s *UserStore) HealthCheck(ctx context.Context) error {
	return nil
}

// IssueStore implements issues.Store.
type IssueStore struct {
	clock
	mu     sync.RWMutex
	nextID int64
	issues map[int64]*issues.Issue
}

// NewIssueStore returns an empty issue store.
func NewIssueStore(opts ...Option) *IssueStore {
	return &IssueStore{
		clock:  newClock(opts),
		issues: make(map[int64]*issues.Issue),
	}
}

func (s *IssueStore) Create(ctx context.Context, issue *issues.Issue) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := s.now()
	stored := *issue
	stored.ID = s.nextID
	if stored.Status == "" {
		stored.Status = issues.StatusOpen
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.issues[stored.ID] = &stored
	return stored.ID, nil
}

func (s *IssueStore) Get(ctx context.Context, owner string, id int64) (*issues.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	issue, ok := s.issues[id]
	if !ok || issue.Email != owner {
		return nil, issues.ErrNotFound
	}
	clone := *issue
	return &clone, nil
}

func (s *IssueStore) List(ctx context.Context, filter issues.Filter) ([]*issues.Issue, error) {
	s.mu.RLock()
	all := make([]*issues.Issue, 0, len(s.issues))
	for _, issue := range s.issues {
		clone := *issue
		all = append(all, &clone)
	}
	s.mu.RUnlock()

	// newest first, id breaks ties
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	switch {
	case filter.Range != nil:
		start := filter.Range.Start
		if start >= len(all) {
			return []*issues.Issue{}, nil
		}
		end := len(all)
		if filter.Range.End < end-1 {
			end = filter.Range.End + 1
		}
		return all[start:end], nil
	case filter.Email != "":
		return keep(all, func(i *issues.Issue) bool { return i.Email == filter.Email }), nil
	case filter.Type != "":
		return keep(all, func(i *issues.Issue) bool { return i.Type == filter.Type }), nil
	}
	return all, nil
}

func (s *IssueStore) Update(ctx context.Context, owner string, id int64, update issues.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, ok := s.issues[id]
	if !ok || issue.Email != owner {
		return issues.ErrNotFound
	}
	update.Apply(issue)
	issue.UpdatedAt = s.now()
	return nil
}

func (s *IssueStore) Delete(ctx context.Context, owner string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, ok := s.issues[id]
	if !ok || issue.Email != owner {
		return issues.ErrNotFound
	}
	delete(s.issues, id)
	return nil
}

func keep(in []*issues.Issue, pred func(*issues.Issue) bool) []*issues.Issue {
	out := make([]*issues.Issue, 0, len(in))
	for _, i := range in {
		if pred(i) {
			out = append(out, i)
		}
	}
	return out
}
