package api

import (
	"errors"
	"net/http"

	"github.com/apnisec/issuetracker/pkg/auth"
	"github.com/apnisec/issuetracker/pkg/httputil"
	"github.com/apnisec/issuetracker/pkg/issues"
	"github.com/apnisec/issuetracker/pkg/observability"
)

// msgInvalidLogin is shared by unknown-email and wrong-password failures.
const msgInvalidLogin = "invalid email or password"

// writeError maps a domain error to its HTTP status. Unrecognised errors are
// logged and reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrMissingFields), errors.Is(err, issues.ErrMissingFields):
		httputil.WriteBadRequest(w, err.Error())
	case errors.Is(err, issues.ErrInvalidType), errors.Is(err, issues.ErrInvalidStatus), errors.Is(err, issues.ErrInvalidRange):
		httputil.WriteBadRequest(w, err.Error())
	case errors.Is(err, auth.ErrAlreadyRegistered):
		httputil.WriteConflict(w, err.Error())
	case errors.Is(err, auth.ErrNoSuchUser), errors.Is(err, auth.ErrInvalidCredentials):
		httputil.WriteUnauthorized(w, msgInvalidLogin)
	case errors.Is(err, auth.ErrUnauthorized):
		httputil.WriteUnauthorized(w, "unauthorized")
	case errors.Is(err, auth.ErrInvalidToken):
		httputil.WriteUnauthorized(w, "invalid token")
	case errors.Is(err, auth.ErrUserNotFound):
		httputil.WriteUnauthorized(w, "user not found")
	case errors.Is(err, issues.ErrNotFound):
		httputil.WriteNotFoundError(w, "issue not found")
	default:
		observability.FromContext(r.Context()).WithError(err).Error("request failed")
		httputil.WriteInternalError(w)
	}
}

// authOutcome is the metrics label for an auth operation result.
func authOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, auth.ErrMissingFields):
		return "missing_fields"
	case errors.Is(err, auth.ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, auth.ErrNoSuchUser):
		return "no_such_user"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, auth.ErrUserNotFound):
		return "user_not_found"
	default:
		return "error"
	}
}
