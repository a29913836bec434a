package model

import "strings"

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// severityRank orders severities for comparisons.
var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// ParseSeverity maps a case-insensitive string to a Severity. Unknown values map to LOW.
func ParseSeverity(s string) Severity {
	sev := Severity(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := severityRank[sev]; ok {
		return sev
	}
	return SeverityLow
}

// Valid reports whether s is one of the four severity levels.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// Rank returns the ordinal of s (LOW=0 .. CRITICAL=3).
func (s Severity) Rank() int {
	return severityRank[s]
}

// AtLeast reports whether s is equal to or more severe than other.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// IsAlerting reports whether records of this severity surface as alerts.
func (s Severity) IsAlerting() bool {
	return s.AtLeast(SeverityHigh)
}

// Lower returns the lowercase wire form used by the admin feed.
func (s Severity) Lower() string {
	return strings.ToLower(string(s))
}

// SeveritiesAtLeast returns every severity whose rank is >= min, in ascending order.
func SeveritiesAtLeast(min Severity) []Severity {
	out := make([]Severity, 0, 4)
	for _, s := range []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical} {
		if s.AtLeast(min) {
			out = append(out, s)
		}
	}
	return out
}
