// Package notify dispatches monitor status-change notifications. It
// generalizes the account-notification sender into a fire-and-log
// dispatcher keyed by tenant and monitor rather than a single recipient.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"

	"github.com/sentrymon/monitor-core/internal/domain"
)

// Notifier delivers a monitor event to whatever channel the tenant has
// configured. Dispatch calls it synchronously and logs a failure instead
// of returning it to the check pipeline.
type Notifier interface {
	Notify(ctx context.Context, tenantID, monitorID string, hb *domain.Heartbeat) error
}

// LogNotifier logs notifications instead of sending them — used in
// ENV=local and whenever no provider credentials are configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, tenantID, monitorID string, hb *domain.Heartbeat) error {
	n.logger.Info("notification (local dev)",
		"tenant_id", tenantID, "monitor_id", monitorID,
		"status", hb.Status.String(), "msg", hb.Msg, "important", hb.Important)
	return nil
}

// EmailNotifier sends a status-change email via Resend. The recipient is
// resolved by the caller's tenant/monitor lookup and passed at construction;
// the core has no notion of user contact details.
type EmailNotifier struct {
	client *resend.Client
	from   string
	to     string
}

func NewEmailNotifier(apiKey, from, to string) *EmailNotifier {
	return &EmailNotifier{client: resend.NewClient(apiKey), from: from, to: to}
}

func (n *EmailNotifier) Notify(ctx context.Context, tenantID, monitorID string, hb *domain.Heartbeat) error {
	subject := fmt.Sprintf("[%s] monitor %s is %s", tenantID, monitorID, hb.Status.String())
	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{n.to},
		Subject: subject,
		Html:    hb.Msg,
	}
	if _, err := n.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("send notification email: %w", err)
	}
	return nil
}

// New returns a LogNotifier for ENV=local or when apiKey is empty,
// EmailNotifier otherwise — mirrors the sender-selection rule the
// account-notification path uses.
func New(env, apiKey, from, to string, logger *slog.Logger) Notifier {
	if env == "local" || apiKey == "" {
		return NewLogNotifier(logger)
	}
	return NewEmailNotifier(apiKey, from, to)
}

// Dispatch calls Notify and logs (never propagates) a failure — notification
// failures must never block the heartbeat pipeline.
func Dispatch(ctx context.Context, n Notifier, logger *slog.Logger, tenantID, monitorID string, hb *domain.Heartbeat) {
	if err := n.Notify(ctx, tenantID, monitorID, hb); err != nil {
		logger.Warn("notification dispatch failed", "tenant_id", tenantID, "monitor_id", monitorID, "error", err)
	}
}
