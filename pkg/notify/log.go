package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/apnisec/issuetracker/pkg/issues"
)

// LogNotifier records notifications in the log instead of sending them. It is
// used when no email API key is configured.
type LogNotifier struct {
	logger *logrus.Logger
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyWelcome(ctx context.Context, to, name string) error {
	n.entry(KindWelcome, to).Info("Notification skipped: email delivery disabled")
	return nil
}

func (n *LogNotifier) NotifyLogin(ctx context.Context, to, name string) error {
	n.entry(KindLogin, to).Info("Notification skipped: email delivery disabled")
	return nil
}

func (n *LogNotifier) NotifyProfileUpdated(ctx context.Context, to, name string, fields []string) error {
	n.entry(KindProfileUpdated, to).WithField("fields", fields).Info("Notification skipped: email delivery disabled")
	return nil
}

func (n *LogNotifier) NotifyIssueCreated(ctx context.Context, to string, issue *issues.Issue) error {
	n.entry(KindIssueCreated, to).WithField("issue_id", issue.ID).Info("Notification skipped: email delivery disabled")
	return nil
}

func (n *LogNotifier) entry(kind Kind, to string) *logrus.Entry {
	return n.logger.WithFields(logrus.Fields{"kind": kind, "to": to})
}
