// Package slackbot handles Slack Socket Mode traffic: alert card buttons and the
// /secwatch slash command.
package slackbot

import (
	"context"
	"log/slog"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"github.com/medme/secwatch/internal/domain/port/inbound"
)

// Config holds Slack bot configuration.
type Config struct {
	BotToken string
	AppToken string
	// AdminUsers lists Slack user IDs allowed to read the feed and act on alerts.
	AdminUsers []string
}

// slackClient is the subset of the Web API the bot calls.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
	UpdateMessageContext(ctx context.Context, channelID, timestamp string, options ...slackapi.MsgOption) (string, string, string, error)
	PostEphemeralContext(ctx context.Context, channelID, userID string, options ...slackapi.MsgOption) (string, error)
}

// Bot handles incoming Slack events via Socket Mode.
type Bot struct {
	client     slackClient
	socketMode *socketmode.Client
	lifecycle  inbound.LifecyclePort
	feed       inbound.FeedPort
	admins     map[string]bool
	logger     *slog.Logger
}

// NewBot creates a new Bot with Socket Mode enabled.
func NewBot(cfg Config, lifecycle inbound.LifecyclePort, feed inbound.FeedPort, logger *slog.Logger) *Bot {
	client := slackapi.New(cfg.BotToken, slackapi.OptionAppLevelToken(cfg.AppToken))
	b := newBot(client, cfg.AdminUsers, lifecycle, feed, logger)
	b.socketMode = socketmode.New(client)
	return b
}

func newBot(client slackClient, adminUsers []string, lifecycle inbound.LifecyclePort, feed inbound.FeedPort, logger *slog.Logger) *Bot {
	admins := make(map[string]bool, len(adminUsers))
	for _, id := range adminUsers {
		admins[id] = true
	}
	return &Bot{
		client:    client,
		lifecycle: lifecycle,
		feed:      feed,
		admins:    admins,
		logger:    logger,
	}
}

// Start begins processing Slack events. It blocks until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	go b.handleEvents(ctx)
	return b.socketMode.RunContext(ctx)
}

// handleEvents dispatches incoming Socket Mode events to the appropriate handler.
func (b *Bot) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-b.socketMode.Events:
			if !ok {
				return
			}
			switch evt.Type {
			case socketmode.EventTypeInteractive:
				b.handleInteraction(ctx, evt)
			case socketmode.EventTypeSlashCommand:
				b.handleSlashCommand(ctx, evt)
			case socketmode.EventTypeConnectionError:
				b.logger.Warn("slack socket mode connection error", "data", evt.Data)
			default:
				if evt.Request != nil {
					b.socketMode.Ack(*evt.Request)
				}
			}
		}
	}
}
