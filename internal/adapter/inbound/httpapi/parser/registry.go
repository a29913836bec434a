// Package parser decodes the browser CSP report formats into model.CSPViolation.
package parser

import (
	"errors"
	"mime"
	"net/http"
	"sync"

	"github.com/medme/secwatch/internal/domain/model"
)

// Format names reported by the built-in parsers.
const (
	FormatLegacy       = "csp-report"
	FormatReportingAPI = "reports+json"
)

// ErrUnsupportedFormat is returned when no registered parser accepts the request.
var ErrUnsupportedFormat = errors.New("unsupported report format")

// ReportParser decodes one CSP report wire format.
type ReportParser interface {
	Format() string
	CanParse(r *http.Request) bool
	Parse(body []byte) ([]model.CSPViolation, error)
}

// Registry resolves the parser for a request. Parsers are tried in registration order.
type Registry struct {
	mu      sync.RWMutex
	parsers []ReportParser
}

func NewRegistry() *Registry {
	return &Registry{}
}

// NewDefaultRegistry returns a registry with the Reporting API parser ahead of the
// legacy csp-report parser.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewReportingAPIParser())
	r.Register(NewLegacyParser())
	return r
}

func (r *Registry) Register(p ReportParser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers = append(r.parsers, p)
}

func (r *Registry) Resolve(req *http.Request) (ReportParser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.parsers {
		if p.CanParse(req) {
			return p, nil
		}
	}
	return nil, ErrUnsupportedFormat
}

// Formats returns the format names of all registered parsers.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	formats := make([]string, len(r.parsers))
	for i, p := range r.parsers {
		formats[i] = p.Format()
	}
	return formats
}

func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}
