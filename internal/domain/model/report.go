package model

import "time"

// CSPViolation is a browser Content-Security-Policy violation report, normalised from
// either the legacy csp-report body or the Reporting API body.
type CSPViolation struct {
	DocumentURI        string `json:"documentURI"`
	Referrer           string `json:"referrer,omitempty"`
	ViolatedDirective  string `json:"violatedDirective"`
	EffectiveDirective string `json:"effectiveDirective,omitempty"`
	OriginalPolicy     string `json:"originalPolicy,omitempty"`
	BlockedURI         string `json:"blockedURI"`
	SourceFile         string `json:"sourceFile,omitempty"`
	ScriptSample       string `json:"scriptSample,omitempty"`
	Disposition        string `json:"disposition,omitempty"`
	LineNumber         int    `json:"lineNumber,omitempty"`
	ColumnNumber       int    `json:"columnNumber,omitempty"`
	StatusCode         int    `json:"statusCode,omitempty"`
}

// SuspiciousActivity is a client-side beacon describing an anomalous burst of behaviour.
type SuspiciousActivity struct {
	Type     string         `json:"type"`
	Count    int            `json:"count"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SecurityAlertReport is an explicit alert raised by the web application.
type SecurityAlertReport struct {
	Type     string         `json:"type"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type IdentityEventType string

const (
	IdentityLoginSucceeded IdentityEventType = "login.succeeded"
	IdentityLoginFailed    IdentityEventType = "login.failed"
	IdentitySessionEnded   IdentityEventType = "session.ended"
	IdentityUserCreated    IdentityEventType = "user.created"
	IdentityUserUpdated    IdentityEventType = "user.updated"
)

// IdentityEvent is a webhook delivery from the identity provider.
type IdentityEvent struct {
	Type                IdentityEventType `json:"type"`
	UserID              string            `json:"userId"`
	Email               string            `json:"email,omitempty"`
	Role                string            `json:"role,omitempty"`
	Verified            bool              `json:"verified,omitempty"`
	ConsecutiveFailures int               `json:"consecutiveFailures,omitempty"`
	IP                  string            `json:"ip,omitempty"`
	UserAgent           string            `json:"userAgent,omitempty"`
	OccurredAt          time.Time         `json:"occurredAt"`
}

type ReportAction string

const (
	ReportLogged  ReportAction = "LOGGED"
	ReportIgnored ReportAction = "IGNORED"
	ReportMonitor ReportAction = "MONITOR"
)

// ReportOutcome is the definite classification result returned for every accepted report.
type ReportOutcome struct {
	Severity     Severity     `json:"severity"`
	Score        *int         `json:"score,omitempty"`
	Action       ReportAction `json:"action"`
	RecordID     string       `json:"recordId,omitempty"`
	EscalationID string       `json:"escalationId,omitempty"`
	Reason       string       `json:"reason,omitempty"`
}
