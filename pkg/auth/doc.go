// Package auth provides password hashing, bearer tokens, and the account
// operations built on them.
//
// # Components
//
// Hasher hashes and compares passwords. BcryptHasher is the production
// implementation.
//
// TokenService issues and verifies HS256 JWTs carrying a user's id, email and
// name. The clock is injectable so expiry can be tested deterministically:
//
//	tokens, err := auth.NewTokenService(secret, auth.WithClock(clock))
//	token, err := tokens.Issue(auth.Identity{ID: 1, Email: "a@b.c", Name: "A"}, auth.RegistrationTokenTTL)
//	claims, err := tokens.Verify(token)
//
// Service composes a storage.CredentialStore, a Hasher, a TokenService and a
// notify.Notifier into Register, Login, ResolveCurrentUser, UpdateName and
// UpdatePassword.
//
// # Errors
//
// Every failure is reported as one of the sentinel errors in errors.go and
// matched with errors.Is. An expired token matches both ErrTokenExpired and
// ErrInvalidToken. Store failures match ErrStore and keep the cause in the
// chain.
package auth
