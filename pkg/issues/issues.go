// Package issues models security findings reported by users.
//
// Every issue belongs to the account whose email created it. Mutating
// operations take the owner email as a scoping key so one user can never
// touch another user's issues.
package issues

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("issue not found")
	ErrInvalidType   = errors.New("invalid issue type")
	ErrInvalidStatus = errors.New("invalid issue status")
	ErrInvalidRange  = errors.New("invalid range")
	ErrMissingFields = errors.New("title, description and type are required")
)

// Type is the category of a finding.
type Type string

const (
	TypeCloudSecurity Type = "Cloud Security"
	TypeVAPT          Type = "VAPT"
	TypeRedTeam       Type = "Reteam Assessment"
)

// Status is the workflow state of an issue.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// Types lists every accepted issue type.
var Types = []Type{TypeCloudSecurity, TypeVAPT, TypeRedTeam}

// Statuses lists every accepted status.
var Statuses = []Status{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}

// ParseType validates a raw type string.
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

// ParseStatus validates a raw status string.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Issue is a reported finding.
type Issue struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        Type      `json:"type"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// New builds an open issue owned by email after validating its fields.
func New(email, title, description, issueType string) (*Issue, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if email == "" || title == "" || description == "" || issueType == "" {
		return nil, ErrMissingFields
	}
	t, err := ParseType(issueType)
	if err != nil {
		return nil, err
	}
	return &Issue{
		Email:       email,
		Title:       title,
		Description: description,
		Type:        t,
		Status:      StatusOpen,
	}, nil
}

// MaxPageSize bounds the number of issues a single range may cover.
const MaxPageSize = 1000

// Range is an inclusive window over the newest-first ordering.
type Range struct {
	Start int
	End   int
}

// Limit returns the number of rows the range covers.
func (r Range) Limit() int {
	return r.End - r.Start + 1
}

// ParseRange validates start/end bounds. A range may cover at most
// MaxPageSize issues.
func ParseRange(start, end int) (Range, error) {
	if start < 0 || end < start || end-start >= MaxPageSize {
		return Range{}, fmt.Errorf("%w: start=%d end=%d", ErrInvalidRange, start, end)
	}
	return Range{Start: start, End: end}, nil
}

// Filter selects issues for listing. At most one criterion is honoured, in
// the order Range, Email, Type; a zero Filter lists everything.
type Filter struct {
	Range *Range
	Email string
	Type  Type
}

// Update carries the mutable fields of an issue. Nil fields are left as-is.
type Update struct {
	Title       *string
	Description *string
	Type        *Type
	Status      *Status
}

// Validate checks the enum fields of an update.
func (u Update) Validate() error {
	if u.Type != nil {
		if _, err := ParseType(string(*u.Type)); err != nil {
			return err
		}
	}
	if u.Status != nil {
		if _, err := ParseStatus(string(*u.Status)); err != nil {
			return err
		}
	}
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return ErrMissingFields
	}
	if u.Description != nil && strings.TrimSpace(*u.Description) == "" {
		return ErrMissingFields
	}
	return nil
}

// Empty reports whether the update changes nothing.
func (u Update) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Type == nil && u.Status == nil
}

// Apply copies the set fields onto issue.
func (u Update) Apply(issue *Issue) {
	if u.Title != nil {
		issue.Title = strings.TrimSpace(*u.Title)
	}
	if u.Description != nil {
		issue.Description = strings.TrimSpace(*u.Description)
	}
	if u.Type != nil {
		issue.Type = *u.Type
	}
	if u.Status != nil {
		issue.Status = *u.Status
	}
}

// Store persists issues. Get, Update and Delete return ErrNotFound when the
// id does not exist or is owned by a different email.
type Store interface {
	Create(ctx context.Context, issue *Issue) (int64, error)
	Get(ctx context.Context, owner string, id int64) (*Issue, error)
	List(ctx context.Context, filter Filter) ([]*Issue, error)
	Update(ctx context.Context, owner string, id int64, update Update) error
	Delete(ctx context.Context, owner string, id int64) error
}
