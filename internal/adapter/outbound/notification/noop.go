package notification

import (
	"context"
	"log/slog"

	"github.com/medme/secwatch/internal/domain/port/outbound"
)

// NoopNotifier logs notifications instead of sending them.
// Used in local development when Slack is not configured.
type NoopNotifier struct {
	logger *slog.Logger
}

func NewNoopNotifier(logger *slog.Logger) *NoopNotifier {
	return &NoopNotifier{logger: logger}
}

var _ outbound.Notifier = (*NoopNotifier)(nil)

func (n *NoopNotifier) NotifySecurityAlert(_ context.Context, notification outbound.AlertNotification) error {
	n.logger.Info("noop: security alert",
		"recordID", notification.RecordID,
		"title", notification.Title,
		"severity", notification.Severity,
		"category", notification.Category,
	)
	return nil
}
