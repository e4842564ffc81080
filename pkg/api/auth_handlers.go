package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/apnisec/issuetracker/pkg/auth"
	"github.com/apnisec/issuetracker/pkg/httputil"
	"github.com/apnisec/issuetracker/pkg/middleware"
	"github.com/apnisec/issuetracker/pkg/observability"
	"github.com/gorilla/mux"
)

// AuthHandlers handles authentication and account HTTP requests
type AuthHandlers struct {
	service     *auth.Service
	metrics     *observability.Metrics
	requireAuth *middleware.AuthMiddleware
	rateLimit   *middleware.RateLimitMiddleware
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(service *auth.Service, metrics *observability.Metrics, requireAuth *middleware.AuthMiddleware, rateLimit *middleware.RateLimitMiddleware) *AuthHandlers {
	return &AuthHandlers{
		service:     service,
		metrics:     metrics,
		requireAuth: requireAuth,
		rateLimit:   rateLimit,
	}
}

// RegisterRoutes registers authentication routes under /api
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/register", h.register).Methods("POST")
	router.HandleFunc("/auth/login", h.login).Methods("POST")
	router.Handle("/auth/me", h.requireAuth.Handler(http.HandlerFunc(h.me))).Methods("GET")
	router.HandleFunc("/auth/logout", h.logout).Methods("POST")

	router.Handle("/user/update-name", h.requireAuth.Handler(http.HandlerFunc(h.updateName))).Methods("PUT")
	router.Handle("/user/update-password", h.requireAuth.Handler(http.HandlerFunc(h.updatePassword))).Methods("PUT")
}

// register handles POST /api/auth/register. Incomplete requests are rejected
// before admission so they do not count against the client's quota.
func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	name, email := strings.TrimSpace(req.Name), strings.TrimSpace(req.Email)
	if name == "" || email == "" || strings.TrimSpace(req.Password) == "" {
		h.metrics.RecordAuth("register", authOutcome(auth.ErrMissingFields))
		writeError(w, r, auth.ErrMissingFields)
		return
	}

	r, ok := h.rateLimit.Admit(w, r)
	if !ok {
		return
	}

	session, err := h.service.Register(r.Context(), name, email, req.Password)
	h.metrics.RecordAuth("register", authOutcome(err))
	if err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, SessionResponse{
		Token:   session.Token,
		User:    session.User,
		Message: "Successful",
	})
}

// login handles POST /api/auth/login
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	session, err := h.service.Login(r.Context(), strings.TrimSpace(req.Email), req.Password)
	h.metrics.RecordAuth("login", authOutcome(err))
	if err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, SessionResponse{
		Token:   session.Token,
		User:    session.User,
		Message: "Successful",
	})
}

// me handles GET /api/auth/me
func (h *AuthHandlers) me(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	httputil.WriteSuccess(w, UserResponse{User: authCtx.User, Message: "Successful"})
}

// logout handles POST /api/auth/logout. Tokens are stateless, so this only
// acknowledges; clients discard the token.
func (h *AuthHandlers) logout(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, MessageResponse{Message: "Logged out"})
}

// updateName handles PUT /api/user/update-name
func (h *AuthHandlers) updateName(w http.ResponseWriter, r *http.Request) {
	var req UpdateNameRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	name := strings.TrimSpace(req.Name)
	err := h.service.UpdateName(r.Context(), middleware.GetAuthContext(r).User, name)
	h.metrics.RecordAuth("update_name", authOutcome(err))
	if err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, UpdateNameResponse{Message: "Name updated successfully", Name: name})
}

// updatePassword handles PUT /api/user/update-password
func (h *AuthHandlers) updatePassword(w http.ResponseWriter, r *http.Request) {
	var req UpdatePasswordRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	err := h.service.UpdatePassword(r.Context(), middleware.GetAuthContext(r).User, req.OldPassword, req.NewPassword)
	h.metrics.RecordAuth("update_password", authOutcome(err))
	switch {
	case err == nil:
		httputil.WriteSuccess(w, MessageResponse{Message: "Password updated"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		httputil.WriteUnauthorized(w, "invalid password")
	default:
		writeError(w, r, err)
	}
}
