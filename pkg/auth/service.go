package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apnisec/issuetracker/pkg/notify"
	"github.com/apnisec/issuetracker/pkg/observability"
	"github.com/apnisec/issuetracker/pkg/storage"
)

// Service implements account registration, login and identity resolution.
type Service struct {
	store    storage.CredentialStore
	hasher   Hasher
	tokens   *TokenService
	notifier notify.Notifier
	logger   *observability.Logger
	loginTTL time.Duration
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLoginTokenTTL sets the lifetime of login tokens. Non-positive values are
// ignored so login tokens always expire.
func WithLoginTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.loginTTL = ttl
		}
	}
}

// NewService composes a Service. notifier may be nil to disable notifications.
func NewService(store storage.CredentialStore, hasher Hasher, tokens *TokenService, notifier notify.Notifier, logger *observability.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		notifier: notifier,
		logger:   logger,
		loginTTL: DefaultLoginTokenTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account and returns it with a token valid for
// RegistrationTokenTTL.
func (s *Service) Register(ctx context.Context, name, email, password string) (*Session, error) {
	if blank(name) || blank(email) || blank(password) {
		return nil, ErrMissingFields
	}

	_, err := s.store.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrAlreadyRegistered
	case !errors.Is(err, storage.ErrNotFound):
		return nil, storeError("lookup user", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, storeError("hash password", err)
	}

	if err := s.store.Insert(ctx, name, email, hash); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrAlreadyRegistered
		}
		return nil, storeError("insert user", err)
	}

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, storeError("reload user", err)
	}

	token, err := s.tokens.Issue(identityOf(user), RegistrationTokenTTL)
	if err != nil {
		return nil, err
	}

	s.logger.WithField("user_id", user.ID).Info("User registered")
	if s.notifier != nil {
		s.report("welcome", s.notifier.NotifyWelcome(ctx, user.Email, user.Name))
	}

	return &Session{User: user, Token: token}, nil
}

// Login checks credentials and returns the account with a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	if blank(email) || blank(password) {
		return nil, ErrMissingFields
	}

	user, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoSuchUser
	} else if err != nil {
		return nil, storeError("lookup user", err)
	}

	ok, err := s.hasher.Compare(password, user.PasswordHash)
	if err != nil {
		return nil, storeError("compare password", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(identityOf(user), s.loginTTL)
	if err != nil {
		return nil, err
	}

	s.logger.WithField("user_id", user.ID).Debug("User logged in")
	if s.notifier != nil {
		s.report("login", s.notifier.NotifyLogin(ctx, user.Email, user.Name))
	}

	return &Session{User: user, Token: token}, nil
}

// ResolveCurrentUser verifies token and loads the account it names.
func (s *Service) ResolveCurrentUser(ctx context.Context, token string) (*storage.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	user, err := s.store.FindByEmail(ctx, claims.Email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUserNotFound
	} else if err != nil {
		return nil, storeError("lookup user", err)
	}
	return user, nil
}

// UpdateName changes the display name of user.
func (s *Service) UpdateName(ctx context.Context, user *storage.User, name string) error {
	if blank(name) {
		return ErrMissingFields
	}

	if err := s.store.UpdateName(ctx, user.Email, name); err != nil {
		return s.updateError("update name", err)
	}

	if s.notifier != nil {
		s.report("profile_updated", s.notifier.NotifyProfileUpdated(ctx, user.Email, name, []string{"name"}))
	}
	return nil
}

// UpdatePassword replaces the password of user after checking the current one.
func (s *Service) UpdatePassword(ctx context.Context, user *storage.User, oldPassword, newPassword string) error {
	if blank(oldPassword) || blank(newPassword) {
		return ErrMissingFields
	}

	ok, err := s.hasher.Compare(oldPassword, user.PasswordHash)
	if err != nil {
		return storeError("compare password", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return storeError("hash password", err)
	}

	if err := s.store.UpdatePassword(ctx, user.Email, hash); err != nil {
		return s.updateError("update password", err)
	}

	s.logger.WithField("user_id", user.ID).Info("Password changed")
	if s.notifier != nil {
		s.report("profile_updated", s.notifier.NotifyProfileUpdated(ctx, user.Email, user.Name, []string{"password"}))
	}
	return nil
}

func (s *Service) updateError(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrUserNotFound
	}
	return storeError(op, err)
}

// report logs a failed notification. Notification errors never reach callers.
func (s *Service) report(kind string, err error) {
	if err != nil {
		s.logger.WithError(err).WithField("notification", kind).Warn("Notification failed")
	}
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

func identityOf(u *storage.User) Identity {
	return Identity{ID: u.ID, Email: u.Email, Name: u.Name}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
