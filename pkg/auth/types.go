package auth

import (
	"github.com/apnisec/issuetracker/pkg/storage"
)

// Session is the result of a successful Register or Login.
type Session struct {
	User  *storage.User
	Token string
}

// AuthContext is the authenticated principal attached to a request.
type AuthContext struct {
	User *storage.User
}

// Email returns the scoping key for the principal's data.
func (ac *AuthContext) Email() string {
	if ac == nil || ac.User == nil {
		return ""
	}
	return ac.User.Email
}
