package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/apnisec/issuetracker/pkg/auth"
	"github.com/apnisec/issuetracker/pkg/contextkeys"
	"github.com/apnisec/issuetracker/pkg/httputil"
	"github.com/apnisec/issuetracker/pkg/observability"
	"github.com/apnisec/issuetracker/pkg/storage"
)

// IdentityResolver turns a bearer token into the stored user it names.
type IdentityResolver interface {
	ResolveCurrentUser(ctx context.Context, token string) (*storage.User, error)
}

// AuthMiddleware provides authentication middleware
type AuthMiddleware struct {
	resolver IdentityResolver
	metrics  *observability.Metrics
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(resolver IdentityResolver, metrics *observability.Metrics) *AuthMiddleware {
	return &AuthMiddleware{
		resolver: resolver,
		metrics:  metrics,
	}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
// A missing header or any other scheme is ErrUnauthorized.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", auth.ErrUnauthorized
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", auth.ErrUnauthorized
	}
	return token, nil
}

// HandlerWhen authenticates only requests for which required reports true.
// Other requests pass through anonymously and their Authorization header,
// stale or not, is ignored.
func (m *AuthMiddleware) HandlerWhen(required func(*http.Request) bool, next http.Handler) http.Handler {
	authed := m.Handler(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if required(r) {
			authed.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Handler wraps an HTTP handler with authentication.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := BearerToken(r)
		if err != nil {
			m.metrics.RecordAuth("resolve", "unauthorized")
			httputil.WriteUnauthorized(w, "unauthorized")
			return
		}

		user, err := m.resolver.ResolveCurrentUser(r.Context(), token)
		if err != nil {
			m.reject(w, r, err)
			return
		}
		m.metrics.RecordAuth("resolve", "success")

		ctx := contextkeys.WithAuth(r.Context(), &auth.AuthContext{User: user})
		ctx = contextkeys.WithUserID(ctx, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		m.metrics.RecordAuth("resolve", "expired")
		httputil.WriteUnauthorized(w, "invalid token")
	case errors.Is(err, auth.ErrInvalidToken):
		m.metrics.RecordAuth("resolve", "invalid_token")
		httputil.WriteUnauthorized(w, "invalid token")
	case errors.Is(err, auth.ErrUserNotFound):
		m.metrics.RecordAuth("resolve", "user_not_found")
		httputil.WriteUnauthorized(w, "user not found")
	default:
		m.metrics.RecordAuth("resolve", "error")
		observability.FromContext(r.Context()).WithError(err).Error("resolve current user")
		httputil.WriteInternalError(w)
	}
}

// GetAuthContext extracts auth context from request
func GetAuthContext(r *http.Request) *auth.AuthContext {
	authCtx, ok := r.Context().Value(contextkeys.AuthKey).(*auth.AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}
