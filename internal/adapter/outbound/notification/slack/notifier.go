package slack

import (
	"context"
	"fmt"
	"strings"

	slackapi "github.com/slack-go/slack"

	"github.com/medme/secwatch/internal/adapter/inbound/slackbot/template"
	"github.com/medme/secwatch/internal/domain/port/outbound"
)

// Config holds Slack notifier configuration.
type Config struct {
	BotToken string
	Channel  string
	// CriticalChannel receives CRITICAL alerts when set; otherwise Channel is used.
	CriticalChannel string
}

// poster is the subset of the Slack client the notifier needs.
type poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Notifier implements outbound.Notifier via the Slack API.
type Notifier struct {
	client poster
	config Config
}

func NewNotifier(cfg Config) *Notifier {
	return &Notifier{
		client: slackapi.New(cfg.BotToken),
		config: cfg,
	}
}

var _ outbound.Notifier = (*Notifier)(nil)

func (n *Notifier) channelFor(severity string) string {
	if strings.EqualFold(severity, "critical") && n.config.CriticalChannel != "" {
		return n.config.CriticalChannel
	}
	return n.config.Channel
}

// NotifySecurityAlert posts a Block Kit alert card with Acknowledge and Resolve buttons.
func (n *Notifier) NotifySecurityAlert(ctx context.Context, notification outbound.AlertNotification) error {
	blocks := template.BuildAlertBlocks(notification)

	_, _, err := n.client.PostMessageContext(ctx, n.channelFor(notification.Severity),
		slackapi.MsgOptionBlocks(blocks...),
		slackapi.MsgOptionText(fmt.Sprintf("[%s] %s", strings.ToUpper(notification.Severity), notification.Title), false),
	)
	if err != nil {
		return fmt.Errorf("slack NotifySecurityAlert: %w", err)
	}
	return nil
}
