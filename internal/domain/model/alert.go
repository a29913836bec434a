package model

import (
	"fmt"
	"strings"
	"time"
)

type AlertState string

const (
	AlertStateOpen         AlertState = "OPEN"
	AlertStateAcknowledged AlertState = "ACKNOWLEDGED"
	AlertStateResolved     AlertState = "RESOLVED"
)

type AlertCategory string

const (
	AlertCategoryAuthentication     AlertCategory = "authentication"
	AlertCategoryAuthorization      AlertCategory = "authorization"
	AlertCategoryDataBreach         AlertCategory = "data_breach"
	AlertCategorySuspiciousActivity AlertCategory = "suspicious_activity"
)

// SecurityAlert is the admin-facing projection of a HIGH or CRITICAL audit record.
type SecurityAlert struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Severity       string        `json:"severity"`
	Category       AlertCategory `json:"category"`
	Timestamp      time.Time     `json:"timestamp"`
	State          AlertState    `json:"state"`
	Acknowledged   bool          `json:"acknowledged"`
	AcknowledgedBy string        `json:"acknowledgedBy,omitempty"`
	AcknowledgedAt *time.Time    `json:"acknowledgedAt,omitempty"`
	Resolved       bool          `json:"resolved"`
	ResolvedBy     string        `json:"resolvedBy,omitempty"`
	ResolvedAt     *time.Time    `json:"resolvedAt,omitempty"`
	Version        int64         `json:"version"`
	Sample         bool          `json:"sample,omitempty"`
}

type AlertAction string

const (
	AlertActionAcknowledge AlertAction = "acknowledge"
	AlertActionResolve     AlertAction = "resolve"
)

func ParseAlertAction(s string) (AlertAction, error) {
	switch a := AlertAction(strings.ToLower(strings.TrimSpace(s))); a {
	case AlertActionAcknowledge, AlertActionResolve:
		return a, nil
	}
	return "", NewValidationError("action", "must be %q or %q", AlertActionAcknowledge, AlertActionResolve)
}

// AuditAction returns the audit action recorded when an admin performs a.
func (a AlertAction) AuditAction() AuditAction {
	if a == AlertActionResolve {
		return AuditAlertResolved
	}
	return AuditAlertAcknowledged
}

// AlertStateOf derives the lifecycle state from the lifecycle metadata keys on r.
func AlertStateOf(r AuditRecord) AlertState {
	if r.MetaString(MetaResolvedAt) != "" {
		return AlertStateResolved
	}
	if r.MetaString(MetaAcknowledgedAt) != "" {
		return AlertStateAcknowledged
	}
	return AlertStateOpen
}

// Transition computes the metadata patch that applies action to r. A nil patch means
// the action is a no-op in the current state (already acknowledged or resolved).
func Transition(r AuditRecord, action AlertAction, actorID string, at time.Time) (map[string]any, error) {
	at = at.UTC()
	state := AlertStateOf(r)

	switch action {
	case AlertActionAcknowledge:
		if state != AlertStateOpen {
			return nil, nil
		}
		return map[string]any{
			MetaAcknowledgedBy: actorID,
			MetaAcknowledgedAt: FormatMetaTime(at),
		}, nil

	case AlertActionResolve:
		switch state {
		case AlertStateResolved:
			return nil, nil
		case AlertStateOpen:
			ts := FormatMetaTime(at)
			return map[string]any{
				MetaAcknowledgedBy: actorID,
				MetaAcknowledgedAt: ts,
				MetaResolvedBy:     actorID,
				MetaResolvedAt:     ts,
			}, nil
		default:
			// resolvedAt never precedes acknowledgedAt, even under clock skew.
			if ackAt, ok := ParseMetaTime(r.MetaString(MetaAcknowledgedAt)); ok && at.Before(ackAt) {
				at = ackAt
			}
			return map[string]any{
				MetaResolvedBy: actorID,
				MetaResolvedAt: FormatMetaTime(at),
			}, nil
		}
	}
	return nil, fmt.Errorf("transition %q: %w", action, ErrValidation)
}

func FormatMetaTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func ParseMetaTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
