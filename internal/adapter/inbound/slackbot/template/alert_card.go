package template

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	slackapi "github.com/slack-go/slack"

	"github.com/medme/secwatch/internal/domain/model"
	"github.com/medme/secwatch/internal/domain/port/outbound"
)

const (
	ActionIDAcknowledge = "secwatch_alert_acknowledge"
	ActionIDResolve     = "secwatch_alert_resolve"
)

// maxContextFields bounds the metadata shown in the card footer.
const maxContextFields = 8

// maxSectionText keeps section text under Slack's 3000 character limit with room
// for the label prefix.
const maxSectionText = 2900

// escapeText neutralises mrkdwn control sequences in reporter-supplied text, so
// <!channel> mentions and <url|label> links render literally. The escaped result
// never exceeds limit runes plus the ellipsis.
func escapeText(s string, limit int) string {
	var b strings.Builder
	n := 0
	for _, r := range s {
		var piece string
		switch r {
		case '&':
			piece = "&amp;"
		case '<':
			piece = "&lt;"
		case '>':
			piece = "&gt;"
		default:
			piece = string(r)
		}
		w := utf8.RuneCountInString(piece)
		if n+w > limit {
			b.WriteString("…")
			break
		}
		b.WriteString(piece)
		n += w
	}
	return b.String()
}

// severityEmoji maps severity to an emoji prefix.
func severityEmoji(severity string) string {
	switch strings.ToUpper(severity) {
	case string(model.SeverityCritical):
		return ":red_circle:"
	case string(model.SeverityHigh):
		return ":large_orange_circle:"
	case string(model.SeverityMedium):
		return ":large_yellow_circle:"
	default:
		return ":large_blue_circle:"
	}
}

func markdown(text string) *slackapi.TextBlockObject {
	return slackapi.NewTextBlockObject(slackapi.MarkdownType, text, false, false)
}

func button(actionID, value, label string, style slackapi.Style) *slackapi.ButtonBlockElement {
	btn := slackapi.NewButtonBlockElement(actionID, value,
		slackapi.NewTextBlockObject(slackapi.PlainTextType, label, false, false))
	btn.Style = style
	return btn
}

// BuildAlertBlocks constructs the Block Kit card posted for a new HIGH or CRITICAL
// record. Button values carry the record ID.
func BuildAlertBlocks(n outbound.AlertNotification) []slackapi.Block {
	header := slackapi.NewSectionBlock(
		markdown(fmt.Sprintf("%s *%s*", severityEmoji(n.Severity), escapeText(n.Title, 200))), nil, nil)

	fields := []*slackapi.TextBlockObject{
		markdown(fmt.Sprintf("*Severity*\n%s", strings.ToUpper(n.Severity))),
		markdown(fmt.Sprintf("*Category*\n%s", escapeText(n.Category, 100))),
		markdown(fmt.Sprintf("*Record ID*\n`%s`", n.RecordID)),
	}
	fieldBlock := slackapi.NewSectionBlock(nil, fields, nil)

	desc := slackapi.NewSectionBlock(markdown(fmt.Sprintf("*Description*\n%s", escapeText(n.Description, maxSectionText))), nil, nil)

	blocks := []slackapi.Block{header, slackapi.NewDividerBlock(), fieldBlock, desc}

	if ctx := metadataLine(n.Metadata); ctx != "" {
		blocks = append(blocks, slackapi.NewContextBlock("", markdown(ctx)))
	}

	actions := slackapi.NewActionBlock("",
		button(ActionIDAcknowledge, n.RecordID, "Acknowledge", slackapi.StylePrimary),
		button(ActionIDResolve, n.RecordID, "Resolve", slackapi.StyleDanger),
	)
	return append(blocks, slackapi.NewDividerBlock(), actions)
}

// BuildAlertStateBlocks renders an alert after a lifecycle action. A resolved alert
// carries no buttons; an acknowledged one keeps only Resolve.
func BuildAlertStateBlocks(a model.SecurityAlert) []slackapi.Block {
	header := slackapi.NewSectionBlock(
		markdown(fmt.Sprintf("%s *%s*", severityEmoji(string(a.Severity)), escapeText(a.Title, 200))), nil, nil)
	desc := slackapi.NewSectionBlock(markdown(escapeText(a.Description, maxSectionText)), nil, nil)

	var status string
	switch a.State {
	case model.AlertStateResolved:
		status = fmt.Sprintf(":white_check_mark: Resolved by %s", escapeText(a.ResolvedBy, 100))
	case model.AlertStateAcknowledged:
		status = fmt.Sprintf(":eyes: Acknowledged by %s", escapeText(a.AcknowledgedBy, 100))
	default:
		status = ":rotating_light: Open"
	}
	blocks := []slackapi.Block{header, desc, slackapi.NewContextBlock("", markdown(status))}

	switch a.State {
	case model.AlertStateOpen:
		blocks = append(blocks, slackapi.NewActionBlock("",
			button(ActionIDAcknowledge, a.ID, "Acknowledge", slackapi.StylePrimary),
			button(ActionIDResolve, a.ID, "Resolve", slackapi.StyleDanger),
		))
	case model.AlertStateAcknowledged:
		blocks = append(blocks, slackapi.NewActionBlock("",
			button(ActionIDResolve, a.ID, "Resolve", slackapi.StyleDanger),
		))
	}
	return blocks
}

func metadataLine(meta map[string]any) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > maxContextFields {
		keys = keys[:maxContextFields]
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("`%s=%s`", escapeText(k, 40), escapeText(fmt.Sprint(meta[k]), 120)))
	}
	return strings.Join(parts, "  ")
}
