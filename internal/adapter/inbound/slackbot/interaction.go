package slackbot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"github.com/medme/secwatch/internal/adapter/inbound/slackbot/template"
	"github.com/medme/secwatch/internal/domain/model"
	"github.com/medme/secwatch/internal/domain/port/inbound"
)

// actorFor maps a Slack user onto a domain actor. Users outside the admin list are
// authenticated but hold no capabilities.
func (b *Bot) actorFor(userID string) model.Actor {
	actor := model.Actor{ID: "slack:" + userID, RequestID: uuid.NewString()}
	if b.admins[userID] {
		actor.Role = model.RoleAdmin
	}
	return actor
}

// handleInteraction processes Slack interactive component payloads (button clicks).
func (b *Bot) handleInteraction(ctx context.Context, evt socketmode.Event) {
	b.socketMode.Ack(*evt.Request)

	callback, ok := evt.Data.(slackapi.InteractionCallback)
	if !ok {
		return
	}

	for _, action := range callback.ActionCallback.BlockActions {
		switch action.ActionID {
		case template.ActionIDAcknowledge:
			b.processAlertAction(ctx, callback, action.Value, model.AlertActionAcknowledge)
		case template.ActionIDResolve:
			b.processAlertAction(ctx, callback, action.Value, model.AlertActionResolve)
		}
	}
}

// processAlertAction applies a lifecycle action and redraws the alert card.
func (b *Bot) processAlertAction(ctx context.Context, callback slackapi.InteractionCallback, alertID string, action model.AlertAction) {
	actor := b.actorFor(callback.User.ID)
	if !actor.Can(model.CapSecurityManage) {
		b.ephemeral(ctx, callback, ":no_entry: You are not allowed to manage security alerts.")
		return
	}

	alert, err := b.lifecycle.ApplyAlertAction(ctx, actor, inbound.AlertActionRequest{
		AlertID: alertID,
		Action:  action,
	})
	if err != nil {
		b.logger.Warn("slack alert action failed", "alertID", alertID, "action", action, "user", callback.User.ID, "error", err)
		b.ephemeral(ctx, callback, actionErrorText(alertID, err))
		return
	}

	_, _, _, err = b.client.UpdateMessageContext(ctx, callback.Channel.ID, callback.Message.Timestamp,
		slackapi.MsgOptionBlocks(template.BuildAlertStateBlocks(alert)...),
		slackapi.MsgOptionText(fmt.Sprintf("%s: %s", alert.State, alert.Title), false),
	)
	if err != nil {
		b.logger.Warn("update alert card failed", "alertID", alertID, "error", err)
	}
}

func (b *Bot) ephemeral(ctx context.Context, callback slackapi.InteractionCallback, text string) {
	if _, err := b.client.PostEphemeralContext(ctx, callback.Channel.ID, callback.User.ID,
		slackapi.MsgOptionText(text, false)); err != nil {
		b.logger.Warn("post ephemeral failed", "error", err)
	}
}

func actionErrorText(alertID string, err error) string {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return fmt.Sprintf(":grey_question: Alert `%s` no longer exists.", alertID)
	case errors.Is(err, model.ErrConflict):
		return fmt.Sprintf(":arrows_counterclockwise: Alert `%s` changed while you were acting on it. Try again.", alertID)
	case errors.Is(err, model.ErrForbidden):
		return ":no_entry: You are not allowed to manage security alerts."
	default:
		return fmt.Sprintf(":x: Could not update alert `%s`. The audit store may be unavailable.", alertID)
	}
}

// handleSlashCommand processes /secwatch slash commands.
func (b *Bot) handleSlashCommand(ctx context.Context, evt socketmode.Event) {
	cmd, ok := evt.Data.(slackapi.SlashCommand)
	if !ok {
		b.socketMode.Ack(*evt.Request)
		return
	}
	b.socketMode.Ack(*evt.Request, b.slashCommandResponse(ctx, cmd))
}

func (b *Bot) slashCommandResponse(ctx context.Context, cmd slackapi.SlashCommand) map[string]any {
	sub := strings.TrimSpace(strings.ToLower(cmd.Text))
	if sub == "" || sub == "help" {
		return map[string]any{"text": buildHelpText()}
	}

	if !b.actorFor(cmd.UserID).Can(model.CapSecurityRead) {
		return map[string]any{"text": ":no_entry: You are not allowed to read the security feed."}
	}

	switch sub {
	case "status":
		return map[string]any{"blocks": template.BuildMetricsBlocks(b.feed.Metrics(ctx))}
	case "alerts":
		return map[string]any{"blocks": template.BuildAlertListBlocks(b.feed.Alerts(ctx, 0, 10))}
	default:
		sanitized := cmd.Text
		if len(sanitized) > 100 {
			sanitized = sanitized[:100]
		}
		sanitized = strings.ReplaceAll(sanitized, "`", "'")
		return map[string]any{"text": fmt.Sprintf(":question: Unknown command `%s`. Try `/secwatch help`.", sanitized)}
	}
}

func buildHelpText() string {
	return strings.Join([]string{
		":shield: *secwatch commands*",
		"",
		"• `/secwatch status`: security score and counters for the last 24h",
		"• `/secwatch alerts`: the ten most recent HIGH and CRITICAL alerts",
		"• `/secwatch help`: show this message",
		"",
		"Use the Acknowledge and Resolve buttons on alert cards to triage.",
	}, "\n")
}
