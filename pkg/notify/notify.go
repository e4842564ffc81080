// Package notify delivers transactional email about account and issue
// activity.
//
// Notifications are best-effort. Callers wrap a concrete Notifier in Async so
// delivery runs off the request path and failures are only logged.
package notify

import (
	"context"

	"github.com/apnisec/issuetracker/pkg/issues"
)

// Kind labels a notification in logs and metrics.
type Kind string

const (
	KindWelcome        Kind = "welcome"
	KindLogin          Kind = "login"
	KindProfileUpdated Kind = "profile_updated"
	KindIssueCreated   Kind = "issue_created"
)

// Notifier sends account and issue notifications to a user.
type Notifier interface {
	NotifyWelcome(ctx context.Context, to, name string) error
	NotifyLogin(ctx context.Context, to, name string) error
	NotifyProfileUpdated(ctx context.Context, to, name string, fields []string) error
	NotifyIssueCreated(ctx context.Context, to string, issue *issues.Issue) error
}
