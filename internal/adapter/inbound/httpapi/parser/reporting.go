package parser

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/medme/secwatch/internal/domain/model"
)

const cspViolationType = "csp-violation"

type reportingBody struct {
	DocumentURL        string `json:"documentURL"`
	Referrer           string `json:"referrer"`
	EffectiveDirective string `json:"effectiveDirective"`
	OriginalPolicy     string `json:"originalPolicy"`
	BlockedURL         string `json:"blockedURL"`
	SourceFile         string `json:"sourceFile"`
	Sample             string `json:"sample"`
	Disposition        string `json:"disposition"`
	LineNumber         int    `json:"lineNumber"`
	ColumnNumber       int    `json:"columnNumber"`
	StatusCode         int    `json:"statusCode"`
}

type reportingEntry struct {
	Type string          `json:"type"`
	URL  string          `json:"url"`
	Body json.RawMessage `json:"body"`
}

// ReportingAPIParser handles application/reports+json batches delivered through the
// report-to directive. Entries of other report types are skipped.
type ReportingAPIParser struct {
	// MaxReports caps the number of violations taken from one batch.
	MaxReports int
}

func NewReportingAPIParser() *ReportingAPIParser { return &ReportingAPIParser{MaxReports: 50} }

func (p *ReportingAPIParser) Format() string { return FormatReportingAPI }

func (p *ReportingAPIParser) CanParse(r *http.Request) bool {
	return mediaType(r) == "application/reports+json"
}

func (p *ReportingAPIParser) Parse(body []byte) ([]model.CSPViolation, error) {
	var entries []reportingEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decoding reports+json: %w", err)
	}

	out := make([]model.CSPViolation, 0, len(entries))
	for _, e := range entries {
		if e.Type != cspViolationType {
			continue
		}
		if p.MaxReports > 0 && len(out) >= p.MaxReports {
			break
		}
		var b reportingBody
		if err := json.Unmarshal(e.Body, &b); err != nil {
			return nil, fmt.Errorf("decoding csp-violation body: %w", err)
		}
		doc := b.DocumentURL
		if doc == "" {
			doc = e.URL
		}
		// The Reporting API only carries effectiveDirective.
		out = append(out, model.CSPViolation{
			DocumentURI:        doc,
			Referrer:           b.Referrer,
			ViolatedDirective:  b.EffectiveDirective,
			EffectiveDirective: b.EffectiveDirective,
			OriginalPolicy:     b.OriginalPolicy,
			BlockedURI:         b.BlockedURL,
			SourceFile:         b.SourceFile,
			ScriptSample:       b.Sample,
			Disposition:        b.Disposition,
			LineNumber:         b.LineNumber,
			ColumnNumber:       b.ColumnNumber,
			StatusCode:         b.StatusCode,
		})
	}
	return out, nil
}
