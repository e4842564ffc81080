package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/apnisec/issuetracker/pkg/issues"
)

// DefaultResendURL is the Resend email API base URL.
const DefaultResendURL = "https://api.resend.com"

// ResendConfig configures the Resend email client.
type ResendConfig struct {
	APIKey  string
	From    string
	BaseURL string
	Timeout time.Duration
}

// ResendNotifier sends email through the Resend HTTP API.
type ResendNotifier struct {
	config ResendConfig
	client *http.Client
	logger *logrus.Logger
	now    func() time.Time
}

// NewResendNotifier creates a notifier. Zero BaseURL and Timeout fall back to
// DefaultResendURL and 10 seconds.
func NewResendNotifier(config ResendConfig, logger *logrus.Logger) *ResendNotifier {
	if config.BaseURL == "" {
		config.BaseURL = DefaultResendURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &ResendNotifier{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
		now:    time.Now,
	}
}

type resendEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendResponse struct {
	ID string `json:"id"`
}

func (n *ResendNotifier) NotifyWelcome(ctx context.Context, to, name string) error {
	html, err := render(welcomeTmpl, struct{ Name string }{name})
	if err != nil {
		return err
	}
	return n.send(ctx, KindWelcome, to, "Welcome to ApniSec", html)
}

func (n *ResendNotifier) NotifyLogin(ctx context.Context, to, name string) error {
	html, err := render(loginTmpl, struct {
		Name string
		Time string
	}{name, n.now().UTC().Format(time.RFC1123)})
	if err != nil {
		return err
	}
	return n.send(ctx, KindLogin, to, "New Login Detected", html)
}

func (n *ResendNotifier) NotifyProfileUpdated(ctx context.Context, to, name string, fields []string) error {
	html, err := render(profileTmpl, struct {
		Name   string
		Fields string
	}{name, strings.Join(fields, ", ")})
	if err != nil {
		return err
	}
	return n.send(ctx, KindProfileUpdated, to, "Profile Updated", html)
}

func (n *ResendNotifier) NotifyIssueCreated(ctx context.Context, to string, issue *issues.Issue) error {
	html, err := render(issueTmpl, issue)
	if err != nil {
		return err
	}
	return n.send(ctx, KindIssueCreated, to, fmt.Sprintf("New Security Issue #%d", issue.ID), html)
}

func (n *ResendNotifier) send(ctx context.Context, kind Kind, to, subject, html string) error {
	payload, err := json.Marshal(resendEmail{
		From:    n.config.From,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.config.BaseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.config.APIKey)
	req.Header.Set("Idempotency-Key", uuid.NewString())

	start := time.Now()
	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s email: %w", kind, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email API returned status %d for %s email: %s", resp.StatusCode, kind, strings.TrimSpace(string(body)))
	}

	var out resendResponse
	_ = json.Unmarshal(body, &out)

	n.logger.WithFields(logrus.Fields{
		"kind":        kind,
		"message_id":  out.ID,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Email sent")
	return nil
}
