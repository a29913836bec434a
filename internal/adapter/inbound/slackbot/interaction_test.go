package slackbot

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medme/secwatch/internal/domain/model"
	"github.com/medme/secwatch/internal/domain/port/inbound"
	"github.com/medme/secwatch/internal/domain/port/outbound"
)

type fakeClient struct {
	updated    []string
	ephemerals []string
}

func (f *fakeClient) PostMessageContext(context.Context, string, ...slackapi.MsgOption) (string, string, error) {
	return "", "", nil
}

func (f *fakeClient) UpdateMessageContext(_ context.Context, channelID, ts string, _ ...slackapi.MsgOption) (string, string, string, error) {
	f.updated = append(f.updated, channelID+"/"+ts)
	return channelID, ts, "", nil
}

func (f *fakeClient) PostEphemeralContext(_ context.Context, _, userID string, _ ...slackapi.MsgOption) (string, error) {
	f.ephemerals = append(f.ephemerals, userID)
	return "", nil
}

type fakeLifecycle struct {
	actor model.Actor
	req   inbound.AlertActionRequest
	err   error
}

func (f *fakeLifecycle) ApplyAlertAction(_ context.Context, actor model.Actor, req inbound.AlertActionRequest) (model.SecurityAlert, error) {
	f.actor, f.req = actor, req
	if f.err != nil {
		return model.SecurityAlert{}, f.err
	}
	return model.SecurityAlert{ID: req.AlertID, State: model.AlertStateAcknowledged, Severity: "high"}, nil
}

type fakeFeed struct{ alertsCalled bool }

func (f *fakeFeed) Events(context.Context, time.Duration, int) model.FeedResult[model.SecurityEvent] {
	return model.FeedResult[model.SecurityEvent]{}
}

func (f *fakeFeed) Alerts(context.Context, time.Duration, int) model.FeedResult[model.SecurityAlert] {
	f.alertsCalled = true
	return model.FeedResult[model.SecurityAlert]{Status: model.FeedEmpty}
}

func (f *fakeFeed) Metrics(context.Context) model.SecurityMetrics {
	return model.SecurityMetrics{OverallScore: 90, Window: "24h0m0s", Status: model.FeedLive}
}

func (f *fakeFeed) Audit(context.Context, outbound.AuditFilter, outbound.PageRequest) (outbound.PageResult[model.AuditRecord], error) {
	return outbound.PageResult[model.AuditRecord]{}, nil
}

func newTestBot(lc *fakeLifecycle, feed *fakeFeed) (*Bot, *fakeClient) {
	client := &fakeClient{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newBot(client, []string{"UADMIN"}, lc, feed, logger), client
}

func callback(user string) slackapi.InteractionCallback {
	var cb slackapi.InteractionCallback
	cb.User.ID = user
	cb.Channel.ID = "C1"
	cb.Message.Timestamp = "1700000000.000100"
	return cb
}

func TestProcessAlertAction_AdminUpdatesCard(t *testing.T) {
	lc := &fakeLifecycle{}
	bot, client := newTestBot(lc, &fakeFeed{})

	bot.processAlertAction(context.Background(), callback("UADMIN"), "rec-1", model.AlertActionAcknowledge)

	assert.Equal(t, "slack:UADMIN", lc.actor.ID)
	assert.Equal(t, model.RoleAdmin, lc.actor.Role)
	assert.Equal(t, "rec-1", lc.req.AlertID)
	assert.Equal(t, []string{"C1/1700000000.000100"}, client.updated)
	assert.Empty(t, client.ephemerals)
}

func TestProcessAlertAction_NonAdminRejected(t *testing.T) {
	lc := &fakeLifecycle{}
	bot, client := newTestBot(lc, &fakeFeed{})

	bot.processAlertAction(context.Background(), callback("UOTHER"), "rec-1", model.AlertActionResolve)

	assert.Empty(t, lc.req.AlertID, "lifecycle must not be called")
	assert.Equal(t, []string{"UOTHER"}, client.ephemerals)
}

func TestProcessAlertAction_ErrorIsEphemeral(t *testing.T) {
	lc := &fakeLifecycle{err: model.ErrConflict}
	bot, client := newTestBot(lc, &fakeFeed{})

	bot.processAlertAction(context.Background(), callback("UADMIN"), "rec-1", model.AlertActionResolve)

	assert.Empty(t, client.updated)
	assert.Len(t, client.ephemerals, 1)
	assert.Contains(t, actionErrorText("rec-1", model.ErrConflict), "changed")
}

func TestSlashCommandResponse(t *testing.T) {
	feed := &fakeFeed{}
	bot, _ := newTestBot(&fakeLifecycle{}, feed)
	ctx := context.Background()

	help := bot.slashCommandResponse(ctx, slackapi.SlashCommand{UserID: "UOTHER", Text: "help"})
	assert.Contains(t, help["text"], "/secwatch status")

	denied := bot.slashCommandResponse(ctx, slackapi.SlashCommand{UserID: "UOTHER", Text: "status"})
	assert.Contains(t, denied["text"], "not allowed")

	status := bot.slashCommandResponse(ctx, slackapi.SlashCommand{UserID: "UADMIN", Text: "status"})
	require.Contains(t, status, "blocks")

	bot.slashCommandResponse(ctx, slackapi.SlashCommand{UserID: "UADMIN", Text: "alerts"})
	assert.True(t, feed.alertsCalled)

	unknown := bot.slashCommandResponse(ctx, slackapi.SlashCommand{UserID: "UADMIN", Text: "`drop`"})
	assert.Contains(t, unknown["text"], "'drop'")
}
