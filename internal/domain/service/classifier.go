package service

import (
	"strings"

	"github.com/medme/secwatch/internal/domain/model"
)

// Generic alert types raised by the web application.
const (
	AlertTypeSecurityInitFailure    = "SECURITY_INIT_FAILURE"
	AlertTypeCriticalVulnerability  = "CRITICAL_VULNERABILITY"
	AlertTypeUnauthorizedAccess     = "UNAUTHORIZED_ACCESS"
	AlertTypeSuspiciousActivity     = "SUSPICIOUS_ACTIVITY"
	AlertTypeConfigurationWarning   = "CONFIGURATION_WARNING"
	AlertTypePerformanceDegradation = "PERFORMANCE_DEGRADATION"
)

// Suspicious-activity beacon types.
const (
	ActivityRapidClicking      = "RAPID_CLICKING"
	ActivityUnusualNavigation  = "UNUSUAL_NAVIGATION"
	ActivityAutomatedBehavior  = "AUTOMATED_BEHAVIOR"
	rapidClickingHighThreshold = 50
)

var alertTypeSeverity = map[string]model.Severity{
	AlertTypeSecurityInitFailure:    model.SeverityCritical,
	AlertTypeCriticalVulnerability:  model.SeverityCritical,
	AlertTypeUnauthorizedAccess:     model.SeverityHigh,
	AlertTypeSuspiciousActivity:     model.SeverityHigh,
	AlertTypeConfigurationWarning:   model.SeverityMedium,
	AlertTypePerformanceDegradation: model.SeverityMedium,
}

var directiveSeverity = map[string]model.Severity{
	"script-src": model.SeverityHigh,
	"object-src": model.SeverityHigh,
	"img-src":    model.SeverityMedium,
	"style-src":  model.SeverityMedium,
}

// CSPAnalysis is the full classification of a CSP violation.
type CSPAnalysis struct {
	Severity      model.Severity
	Directive     string
	FalsePositive string
	XSSIndicator  string
	SQLIndicator  string
}

func (a CSPAnalysis) IsFalsePositive() bool { return a.FalsePositive != "" }

// NormalizeDirective returns the lowercased directive name of v. The effective
// directive is preferred; a violated directive carrying a policy fragment such as
// "script-src 'self'" is reduced to its first token.
func NormalizeDirective(v model.CSPViolation) string {
	d := v.EffectiveDirective
	if strings.TrimSpace(d) == "" {
		d = v.ViolatedDirective
	}
	fields := strings.Fields(strings.ToLower(d))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// baseDirective folds the CSP level 3 -elem/-attr variants onto their parent directive.
func baseDirective(d string) string {
	for _, suffix := range []string{"-elem", "-attr"} {
		if strings.HasSuffix(d, suffix) {
			return strings.TrimSuffix(d, suffix)
		}
	}
	return d
}

// AnalyzeCSP classifies a CSP violation. A false-positive match on the blocked
// resource or its source file forces LOW regardless of directive.
func AnalyzeCSP(v model.CSPViolation) CSPAnalysis {
	a := CSPAnalysis{Directive: NormalizeDirective(v)}

	if sig, ok := falsePositiveMatcher.MatchAny(v.BlockedURI, v.SourceFile); ok {
		a.FalsePositive = sig
	} else if isEvalBlock(v.BlockedURI) {
		if sig, ok := devEvalSources.Match(v.SourceFile); ok {
			a.FalsePositive = sig
		}
	}
	if sig, ok := xssMatcher.MatchAny(v.BlockedURI, v.ScriptSample); ok {
		a.XSSIndicator = sig
	}
	if sig, ok := sqlInjectionMatcher.MatchAny(v.BlockedURI, v.DocumentURI); ok {
		a.SQLIndicator = sig
	}

	if a.IsFalsePositive() {
		a.Severity = model.SeverityLow
		return a
	}
	if sev, ok := directiveSeverity[baseDirective(a.Directive)]; ok {
		a.Severity = sev
	} else {
		a.Severity = model.SeverityLow
	}
	return a
}

func isEvalBlock(blocked string) bool {
	return strings.EqualFold(strings.TrimSpace(blocked), "eval")
}

// ClassifyCSP returns the severity of a CSP violation.
func ClassifyCSP(v model.CSPViolation) model.Severity {
	return AnalyzeCSP(v).Severity
}

// ClassifyAlertType returns the severity of a generic alert type. Unrecognised
// types are LOW.
func ClassifyAlertType(alertType string) model.Severity {
	if sev, ok := alertTypeSeverity[normalizeType(alertType)]; ok {
		return sev
	}
	return model.SeverityLow
}

// ClassifySuspicious returns the severity of a suspicious-activity beacon.
func ClassifySuspicious(activityType string, count int) model.Severity {
	switch normalizeType(activityType) {
	case ActivityAutomatedBehavior:
		return model.SeverityHigh
	case ActivityRapidClicking:
		if count > rapidClickingHighThreshold {
			return model.SeverityHigh
		}
		return model.SeverityMedium
	case ActivityUnusualNavigation:
		return model.SeverityMedium
	}
	return model.SeverityLow
}

func normalizeType(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}
