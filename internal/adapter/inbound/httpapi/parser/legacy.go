package parser

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/medme/secwatch/internal/domain/model"
)

// legacyReport is the body browsers send for the report-uri directive.
type legacyReport struct {
	Report *struct {
		DocumentURI        string `json:"document-uri"`
		Referrer           string `json:"referrer"`
		ViolatedDirective  string `json:"violated-directive"`
		EffectiveDirective string `json:"effective-directive"`
		OriginalPolicy     string `json:"original-policy"`
		BlockedURI         string `json:"blocked-uri"`
		SourceFile         string `json:"source-file"`
		ScriptSample       string `json:"script-sample"`
		Disposition        string `json:"disposition"`
		LineNumber         int    `json:"line-number"`
		ColumnNumber       int    `json:"column-number"`
		StatusCode         int    `json:"status-code"`
	} `json:"csp-report"`
}

// LegacyParser handles application/csp-report bodies. Plain application/json is
// accepted too since older browsers and proxies rewrite the content type.
type LegacyParser struct{}

func NewLegacyParser() *LegacyParser { return &LegacyParser{} }

func (p *LegacyParser) Format() string { return FormatLegacy }

func (p *LegacyParser) CanParse(r *http.Request) bool {
	switch mediaType(r) {
	case "application/csp-report", "application/json":
		return true
	}
	return false
}

func (p *LegacyParser) Parse(body []byte) ([]model.CSPViolation, error) {
	var payload legacyReport
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding csp-report: %w", err)
	}
	if payload.Report == nil {
		return nil, model.NewValidationError("csp-report", "missing csp-report object")
	}
	r := payload.Report
	return []model.CSPViolation{{
		DocumentURI:        r.DocumentURI,
		Referrer:           r.Referrer,
		ViolatedDirective:  r.ViolatedDirective,
		EffectiveDirective: r.EffectiveDirective,
		OriginalPolicy:     r.OriginalPolicy,
		BlockedURI:         r.BlockedURI,
		SourceFile:         r.SourceFile,
		ScriptSample:       r.ScriptSample,
		Disposition:        r.Disposition,
		LineNumber:         r.LineNumber,
		ColumnNumber:       r.ColumnNumber,
		StatusCode:         r.StatusCode,
	}}, nil
}
