package template_test

import (
	"strings"
	"testing"
	"time"

	slackapi "github.com/slack-go/slack"

	"github.com/medme/secwatch/internal/adapter/inbound/slackbot/template"
	"github.com/medme/secwatch/internal/domain/model"
)

// blockText concatenates the visible text of section and context blocks.
func blockText(blocks []slackapi.Block) string {
	var sb strings.Builder
	for _, b := range blocks {
		switch blk := b.(type) {
		case *slackapi.SectionBlock:
			if blk.Text != nil {
				sb.WriteString(blk.Text.Text + "\n")
			}
			for _, f := range blk.Fields {
				sb.WriteString(f.Text + "\n")
			}
		case *slackapi.ContextBlock:
			for _, el := range blk.ContextElements.Elements {
				if txt, ok := el.(*slackapi.TextBlockObject); ok {
					sb.WriteString(txt.Text + "\n")
				}
			}
		}
	}
	return sb.String()
}

func TestBuildMetricsBlocks(t *testing.T) {
	m := model.SecurityMetrics{
		OverallScore: 82,
		Scores:       model.CategoryScores{Authentication: 90, ThreatMonitoring: 60},
		Counters:     model.MetricCounters{CriticalEvents: 1, HighSeverityEvents: 3},
		Window:       "24h",
		Status:       model.FeedLive,
	}

	text := blockText(template.BuildMetricsBlocks(m))
	if !strings.Contains(text, "82/100") {
		t.Errorf("expected overall score in output, got:\n%s", text)
	}
	if !strings.Contains(text, "1 / 3") {
		t.Errorf("expected critical/high counters, got:\n%s", text)
	}
	if strings.Contains(text, "Sample data") {
		t.Error("live metrics must not carry a sample note")
	}
}

func TestBuildMetricsBlocks_SampleNote(t *testing.T) {
	m := model.SecurityMetrics{Window: "24h", Status: model.FeedUnavailable, Sample: true}

	text := blockText(template.BuildMetricsBlocks(m))
	if !strings.Contains(text, "Sample data shown: feed is unavailable") {
		t.Errorf("expected sample note naming the status, got:\n%s", text)
	}
}

func TestBuildAlertListBlocks_Feed(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		blocks := template.BuildAlertListBlocks(model.FeedResult[model.SecurityAlert]{Status: model.FeedEmpty})
		if len(blocks) != 1 || !strings.Contains(blockText(blocks), "No security alerts") {
			t.Errorf("unexpected empty list rendering: %q", blockText(blocks))
		}
	})

	t.Run("items", func(t *testing.T) {
		res := model.FeedResult[model.SecurityAlert]{
			Status: model.FeedLive,
			Items: []model.SecurityAlert{
				{ID: "a1", Title: "Security Threat Detected", Severity: "critical", State: model.AlertStateOpen, Timestamp: time.Now()},
				{ID: "a2", Title: "Authentication Anomaly", Severity: "high", State: model.AlertStateAcknowledged, Timestamp: time.Now()},
			},
		}
		text := blockText(template.BuildAlertListBlocks(res))
		for _, want := range []string{"2 security alert(s)", "`a1`", "`a2`", "Authentication Anomaly"} {
			if !strings.Contains(text, want) {
				t.Errorf("expected %q in output, got:\n%s", want, text)
			}
		}
	})
}
