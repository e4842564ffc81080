package auth

import "errors"

var (
	// ErrUnauthorized means no usable bearer credential was presented.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidToken means the token failed signature, structure or claim checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired means the token was well formed but past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrInvalidCredentials means the password did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoSuchUser means login was attempted for an unknown email.
	ErrNoSuchUser = errors.New("no such user")
	// ErrUserNotFound means a valid token named a user that no longer exists.
	ErrUserNotFound = errors.New("user not found")
	// ErrAlreadyRegistered means the email is taken.
	ErrAlreadyRegistered = errors.New("email already registered")
	// ErrStore wraps failures of the credential store or hasher.
	ErrStore = errors.New("credential store failure")
	// ErrMissingFields means a required input was blank.
	ErrMissingFields = errors.New("missing required fields")
	// ErrMissingSecret means the token signing secret is not configured.
	ErrMissingSecret = errors.New("token signing secret is not configured")
)
