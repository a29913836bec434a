package template

import (
	"fmt"
	"strings"

	slackapi "github.com/slack-go/slack"

	"github.com/medme/secwatch/internal/domain/model"
)

func sampleNote(sample bool, status model.FeedStatus) string {
	if !sample {
		return ""
	}
	return fmt.Sprintf("_Sample data shown: feed is %s._", status)
}

// BuildMetricsBlocks summarises a metrics snapshot for the /secwatch status command.
func BuildMetricsBlocks(m model.SecurityMetrics) []slackapi.Block {
	header := slackapi.NewSectionBlock(
		markdown(fmt.Sprintf(":shield: *Security score: %d/100* (window %s)", m.OverallScore, m.Window)), nil, nil)

	fields := []*slackapi.TextBlockObject{
		markdown(fmt.Sprintf("*Authentication*\n%d", m.Scores.Authentication)),
		markdown(fmt.Sprintf("*Authorization*\n%d", m.Scores.Authorization)),
		markdown(fmt.Sprintf("*Access control*\n%d", m.Scores.AccessControl)),
		markdown(fmt.Sprintf("*Data protection*\n%d", m.Scores.DataProtection)),
		markdown(fmt.Sprintf("*Threat monitoring*\n%d", m.Scores.ThreatMonitoring)),
		markdown(fmt.Sprintf("*Critical / high events*\n%d / %d", m.Counters.CriticalEvents, m.Counters.HighSeverityEvents)),
	}
	blocks := []slackapi.Block{header, slackapi.NewSectionBlock(nil, fields, nil)}
	if note := sampleNote(m.Sample, m.Status); note != "" {
		blocks = append(blocks, slackapi.NewContextBlock("", markdown(note)))
	}
	return blocks
}

// BuildAlertListBlocks lists alerts one line each, newest first.
func BuildAlertListBlocks(res model.FeedResult[model.SecurityAlert]) []slackapi.Block {
	if len(res.Items) == 0 {
		return []slackapi.Block{slackapi.NewSectionBlock(
			markdown(":large_green_circle: No security alerts in the current window."), nil, nil)}
	}
	lines := make([]string, 0, len(res.Items))
	size := 0
	for i, a := range res.Items {
		line := fmt.Sprintf("%s `%s` *%s* (%s) %s",
			severityEmoji(string(a.Severity)), escapeText(a.ID, 64), escapeText(a.Title, 120), a.State, a.Timestamp.Format("Jan 2 15:04"))
		if size+len(line) > maxSectionText {
			lines = append(lines, fmt.Sprintf("_…and %d more_", len(res.Items)-i))
			break
		}
		lines = append(lines, line)
		size += len(line) + 1
	}
	blocks := []slackapi.Block{
		slackapi.NewSectionBlock(markdown(fmt.Sprintf("*%d security alert(s)*", len(res.Items))), nil, nil),
		slackapi.NewSectionBlock(markdown(strings.Join(lines, "\n")), nil, nil),
	}
	if note := sampleNote(res.Sample, res.Status); note != "" {
		blocks = append(blocks, slackapi.NewContextBlock("", markdown(note)))
	}
	return blocks
}
