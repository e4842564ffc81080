package api

import (
	"github.com/apnisec/issuetracker/pkg/issues"
	"github.com/apnisec/issuetracker/pkg/storage"
)

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	Token   string        `json:"token"`
	User    *storage.User `json:"user"`
	Message string        `json:"message"`
}

// UserResponse is returned by GET /api/auth/me.
type UserResponse struct {
	User    *storage.User `json:"user"`
	Message string        `json:"message"`
}

// MessageResponse carries only a human-readable message.
type MessageResponse struct {
	Message string `json:"message"`
}

// UpdateNameRequest is the body of PUT /api/user/update-name.
type UpdateNameRequest struct {
	Name string `json:"name"`
}

// UpdateNameResponse echoes the new name.
type UpdateNameResponse struct {
	Message string `json:"message"`
	Name    string `json:"name"`
}

// UpdatePasswordRequest is the body of PUT /api/user/update-password.
type UpdatePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// CreateIssueRequest is the body of POST /api/posts.
type CreateIssueRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// CreateIssueResponse returns the new issue id.
type CreateIssueResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

// UpdateIssueRequest is the body of PUT /api/posts/{id}. Absent fields are
// left unchanged.
type UpdateIssueRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Type        *string `json:"type,omitempty"`
	Status      *string `json:"status,omitempty"`
}

// ListIssuesResponse is returned by GET /api/posts.
type ListIssuesResponse struct {
	Message string          `json:"message"`
	Posts   []*issues.Issue `json:"posts"`
}

// IssueResponse is returned by GET /api/posts/{id}.
type IssueResponse struct {
	Message string        `json:"message"`
	Post    *issues.Issue `json:"post"`
}

func (req UpdateIssueRequest) toUpdate() issues.Update {
	u := issues.Update{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Type != nil {
		t := issues.Type(*req.Type)
		u.Type = &t
	}
	if req.Status != nil {
		st := issues.Status(*req.Status)
		u.Status = &st
	}
	return u
}
