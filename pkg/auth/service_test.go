package auth

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/apnisec/issuetracker/pkg/issues"
	"github.com/apnisec/issuetracker/pkg/observability"
	"github.com/apnisec/issuetracker/pkg/storage"
	"github.com/apnisec/issuetracker/pkg/storage/memory"
)

// countingHasher counts Hash calls on top of a cheap bcrypt hasher.
type countingHasher struct {
	*BcryptHasher
	hashes int
}

func (h *countingHasher) Hash(plaintext string) (string, error) {
	h.hashes++
	return h.BcryptHasher.Hash(plaintext)
}

// stubStore lets individual tests inject store failures.
type stubStore struct {
	*memory.UserStore
	findErr   error
	insertErr error
	updateErr error
}

func (s *stubStore) FindByEmail(ctx context.Context, email string) (*storage.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.UserStore.FindByEmail(ctx, email)
}

func (s *stubStore) Insert(ctx context.Context, name, email, hash string) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	return s.UserStore.Insert(ctx, name, email, hash)
}

func (s *stubStore) UpdateName(ctx context.Context, email, name string) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	return s.UserStore.UpdateName(ctx, email, name)
}

type sentNotification struct {
	kind   string
	to     string
	fields []string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *fakeNotifier) add(kind, to string, fields []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{kind: kind, to: to, fields: fields})
	return n.err
}

func (n *fakeNotifier) NotifyWelcome(ctx context.Context, to, name string) error {
	return n.add("welcome", to, nil)
}

func (n *fakeNotifier) NotifyLogin(ctx context.Context, to, name string) error {
	return n.add("login", to, nil)
}

func (n *fakeNotifier) NotifyProfileUpdated(ctx context.Context, to, name string, fields []string) error {
	return n.add("profile_updated", to, fields)
}

func (n *fakeNotifier) NotifyIssueCreated(ctx context.Context, to string, issue *issues.Issue) error {
	return n.add("issue_created", to, nil)
}

type serviceFixture struct {
	svc      *Service
	store    *stubStore
	hasher   *countingHasher
	tokens   *TokenService
	clock    *fakeClock
	notifier *fakeNotifier
}

func newServiceFixture(t *testing.T, opts ...ServiceOption) *serviceFixture {
	t.Helper()
	clock := newFakeClock()
	tokens := newTestTokenService(t, clock)
	f := &serviceFixture{
		store:    &stubStore{UserStore: memory.NewUserStore()},
		hasher:   &countingHasher{BcryptHasher: NewBcryptHasher(bcrypt.MinCost)},
		tokens:   tokens,
		clock:    clock,
		notifier: &fakeNotifier{},
	}
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	f.svc = NewService(f.store, f.hasher, tokens, f.notifier, logger, opts...)
	return f
}

func TestService_RegisterAndResolve(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	session, err := f.svc.Register(ctx, "Alice", "alice@example.com", "pw1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", session.User.Email)
	assert.NotEmpty(t, session.Token)
	assert.NotEqual(t, "pw1", session.User.PasswordHash)

	claims, err := f.tokens.Verify(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.UserID)
	assert.Equal(t, f.clock.Now().Add(RegistrationTokenTTL).Unix(), claims.ExpiresAt.Unix())

	user, err := f.svc.ResolveCurrentUser(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "Alice", user.Name)

	assert.Equal(t, []sentNotification{{kind: "welcome", to: "alice@example.com"}}, f.notifier.sent)
}

func TestService_RegisterDuplicateSkipsHashing(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "Alice", "alice@example.com", "pw1")
	require.NoError(t, err)
	require.Equal(t, 1, f.hasher.hashes)

	_, err = f.svc.Register(ctx, "Alice 2", "alice@example.com", "pw2")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	assert.Equal(t, 1, f.hasher.hashes)
}

func TestService_RegisterInsertConflict(t *testing.T) {
	f := newServiceFixture(t)
	f.store.insertErr = storage.ErrConflict

	_, err := f.svc.Register(context.Background(), "Alice", "alice@example.com", "pw1")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestService_RegisterMissingFields(t *testing.T) {
	f := newServiceFixture(t)

	for _, in := range [][3]string{
		{"", "alice@example.com", "pw"},
		{"Alice", "", "pw"},
		{"Alice", "alice@example.com", ""},
		{"   ", "alice@example.com", "pw"},
	} {
		_, err := f.svc.Register(context.Background(), in[0], in[1], in[2])
		assert.ErrorIs(t, err, ErrMissingFields)
	}
	assert.Equal(t, 0, f.hasher.hashes)
}

func TestService_RegisterStoreFailures(t *testing.T) {
	cause := errors.New("connection refused")

	f := newServiceFixture(t)
	f.store.findErr = cause
	_, err := f.svc.Register(context.Background(), "Alice", "alice@example.com", "pw")
	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, cause)

	f = newServiceFixture(t)
	f.store.insertErr = cause
	_, err = f.svc.Register(context.Background(), "Alice", "alice@example.com", "pw")
	assert.ErrorIs(t, err, ErrStore)
	assert.Empty(t, f.notifier.sent)
}

func TestService_Login(t *testing.T) {
	f := newServiceFixture(t, WithLoginTokenTTL(24*time.Hour))
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "Alice", "alice@example.com", "pw1")
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "bob@example.com", "pw1")
	assert.ErrorIs(t, err, ErrNoSuchUser)

	_, err = f.svc.Login(ctx, "alice@example.com", "")
	assert.ErrorIs(t, err, ErrMissingFields)

	session, err := f.svc.Login(ctx, "alice@example.com", "pw1")
	require.NoError(t, err)

	claims, err := f.tokens.Verify(session.Token)
	require.NoError(t, err)
	require.NotNil(t, claims.ExpiresAt)
	assert.Equal(t, f.clock.Now().Add(24*time.Hour).Unix(), claims.ExpiresAt.Unix())

	user, err := f.svc.ResolveCurrentUser(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)

	require.Len(t, f.notifier.sent, 2)
	assert.Equal(t, "login", f.notifier.sent[1].kind)
}

func TestService_LoginTokensAlwaysExpire(t *testing.T) {
	f := newServiceFixture(t, WithLoginTokenTTL(0))
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "Alice", "alice@example.com", "pw1")
	require.NoError(t, err)
	session, err := f.svc.Login(ctx, "alice@example.com", "pw1")
	require.NoError(t, err)

	claims, err := f.tokens.Verify(session.Token)
	require.NoError(t, err)
	require.NotNil(t, claims.ExpiresAt)
	assert.Equal(t, f.clock.Now().Add(DefaultLoginTokenTTL).Unix(), claims.ExpiresAt.Unix())
}

func TestService_NotificationFailureDoesNotFailLogin(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "Alice", "alice@example.com", "pw1")
	require.NoError(t, err)

	f.notifier.err = errors.New("email API down")
	session, err := f.svc.Login(ctx, "alice@example.com", "pw1")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
}

func TestService_NilNotifier(t *testing.T) {
	clock := newFakeClock()
	tokens := newTestTokenService(t, clock)
	svc := NewService(memory.NewUserStore(), NewBcryptHasher(bcrypt.MinCost), tokens, nil,
		observability.NewLogger(observability.ErrorLevel, io.Discard))

	_, err := svc.Register(context.Background(), "Alice", "alice@example.com", "pw1")
	require.NoError(t, err)
	_, err = svc.Login(context.Background(), "alice@example.com", "pw1")
	require.NoError(t, err)
}

func TestService_ResolveCurrentUser(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	session, err := f.svc.Register(ctx, "Alice", "alice@example.com", "pw1")
	require.NoError(t, err)

	t.Run("unknown user", func(t *testing.T) {
		ghost, err := f.tokens.Issue(Identity{ID: 99, Email: "ghost@example.com", Name: "Ghost"}, time.Hour)
		require.NoError(t, err)

		_, err = f.svc.ResolveCurrentUser(ctx, ghost)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := f.svc.ResolveCurrentUser(ctx, "garbage")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("store failure", func(t *testing.T) {
		f.store.findErr = errors.New("timeout")
		defer func() { f.store.findErr = nil }()

		_, err := f.svc.ResolveCurrentUser(ctx, session.Token)
		assert.ErrorIs(t, err, ErrStore)
	})

	t.Run("expired", func(t *testing.T) {
		f.clock.Advance(RegistrationTokenTTL)
		_, err := f.svc.ResolveCurrentUser(ctx, session.Token)
		assert.ErrorIs(t, err, ErrTokenExpired)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestService_UpdateName(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	session, err := f.svc.Register(ctx, "Alice", "alice@example.com", "pw1")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.UpdateName(ctx, session.User, " "), ErrMissingFields)
	require.NoError(t, f.svc.UpdateName(ctx, session.User, "Alice Liddell"))

	user, err := f.store.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", user.Name)

	last := f.notifier.sent[len(f.notifier.sent)-1]
	assert.Equal(t, "profile_updated", last.kind)
	assert.Equal(t, []string{"name"}, last.fields)

	f.store.updateErr = storage.ErrNotFound
	assert.ErrorIs(t, f.svc.UpdateName(ctx, session.User, "x"), ErrUserNotFound)
	f.store.updateErr = errors.New("boom")
	assert.ErrorIs(t, f.svc.UpdateName(ctx, session.User, "x"), ErrStore)
}

func TestService_UpdatePassword(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	session, err := f.svc.Register(ctx, "Alice", "alice@example.com", "pw1")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.UpdatePassword(ctx, session.User, "pw1", ""), ErrMissingFields)
	assert.ErrorIs(t, f.svc.UpdatePassword(ctx, session.User, "wrong", "pw2"), ErrInvalidCredentials)
	require.NoError(t, f.svc.UpdatePassword(ctx, session.User, "pw1", "pw2"))

	_, err = f.svc.Login(ctx, "alice@example.com", "pw1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "alice@example.com", "pw2")
	assert.NoError(t, err)
}
