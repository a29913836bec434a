package model

import (
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditLoginSuccess       AuditAction = "LOGIN_SUCCESS"
	AuditLoginFailed        AuditAction = "LOGIN_FAILED"
	AuditLogout             AuditAction = "LOGOUT"
	AuditPermissionChange   AuditAction = "PERMISSION_CHANGE"
	AuditRoleChange         AuditAction = "ROLE_CHANGE"
	AuditUnauthorizedAccess AuditAction = "UNAUTHORIZED_ACCESS"
	AuditDataAccess         AuditAction = "DATA_ACCESS"
	AuditDataExport         AuditAction = "DATA_EXPORT"
	AuditDataModification   AuditAction = "DATA_MODIFICATION"
	AuditSecurityAlert      AuditAction = "SECURITY_ALERT"
	AuditCSPViolation       AuditAction = "CSP_VIOLATION"
	AuditSuspiciousActivity AuditAction = "SUSPICIOUS_ACTIVITY"
	AuditAlertAcknowledged  AuditAction = "ALERT_ACKNOWLEDGED"
	AuditAlertResolved      AuditAction = "ALERT_RESOLVED"
	AuditUserUpserted       AuditAction = "USER_UPSERTED"
)

var validActions = map[AuditAction]bool{
	AuditLoginSuccess: true, AuditLoginFailed: true, AuditLogout: true,
	AuditPermissionChange: true, AuditRoleChange: true, AuditUnauthorizedAccess: true,
	AuditDataAccess: true, AuditDataExport: true, AuditDataModification: true,
	AuditSecurityAlert: true, AuditCSPViolation: true, AuditSuspiciousActivity: true,
	AuditAlertAcknowledged: true, AuditAlertResolved: true,
	AuditUserUpserted: true,
}

// Valid reports whether a is a member of the closed action enumeration.
func (a AuditAction) Valid() bool { return validActions[a] }

type AuditCategory string

const (
	CategoryAuthentication   AuditCategory = "AUTHENTICATION"
	CategoryAuthorization    AuditCategory = "AUTHORIZATION"
	CategoryDataAccess       AuditCategory = "DATA_ACCESS"
	CategoryDataModification AuditCategory = "DATA_MODIFICATION"
	CategorySecurity         AuditCategory = "SECURITY"
	CategorySystem           AuditCategory = "SYSTEM"
	CategoryCompliance       AuditCategory = "COMPLIANCE"
)

var validCategories = map[AuditCategory]bool{
	CategoryAuthentication: true, CategoryAuthorization: true, CategoryDataAccess: true,
	CategoryDataModification: true, CategorySecurity: true, CategorySystem: true,
	CategoryCompliance: true,
}

// Valid reports whether c is a member of the closed category enumeration.
func (c AuditCategory) Valid() bool { return validCategories[c] }

// Well-known metadata keys.
const (
	MetaIP             = "ip"
	MetaUserAgent      = "userAgent"
	MetaAcknowledgedBy = "acknowledgedBy"
	MetaAcknowledgedAt = "acknowledgedAt"
	MetaResolvedBy     = "resolvedBy"
	MetaResolvedAt     = "resolvedAt"
	MetaSample         = "sample"
	MetaAlertType      = "alertType"
	MetaEscalatedFrom  = "escalatedFrom"
)

// reservedMetaKeys are written only by the service itself. Lifecycle state and the
// sample flag are derived from them, so callers must never supply them.
var reservedMetaKeys = map[string]bool{
	MetaIP: true, MetaUserAgent: true,
	MetaAcknowledgedBy: true, MetaAcknowledgedAt: true,
	MetaResolvedBy: true, MetaResolvedAt: true,
	MetaSample: true, MetaAlertType: true, MetaEscalatedFrom: true,
	"activityType": true, "count": true, "score": true,
}

// IsReservedMetaKey reports whether key is owned by the service.
func IsReservedMetaKey(key string) bool { return reservedMetaKeys[key] }

// ClientMetadata returns a copy of caller-supplied metadata without reserved keys.
func ClientMetadata(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if !reservedMetaKeys[k] {
			out[k] = v
		}
	}
	return out
}

// AuditRecord is an append-only fact describing one security-relevant occurrence.
// Action, Category, Severity and CreatedAt never change after creation; Metadata may be
// extended (alert lifecycle) and each extension bumps Version.
type AuditRecord struct {
	ID          string         `json:"id" bson:"_id"`
	Action      AuditAction    `json:"action" bson:"action"`
	Category    AuditCategory  `json:"category" bson:"category"`
	Severity    Severity       `json:"severity" bson:"severity"`
	Description string         `json:"description" bson:"description"`
	ActorID     string         `json:"actorId,omitempty" bson:"actorId,omitempty"`
	IP          string         `json:"ip,omitempty" bson:"ip,omitempty"`
	UserAgent   string         `json:"userAgent,omitempty" bson:"userAgent,omitempty"`
	Metadata    map[string]any `json:"metadata" bson:"metadata"`
	Version     int64          `json:"version" bson:"version"`
	CreatedAt   time.Time      `json:"createdAt" bson:"createdAt"`
}

// NewAuditRecord creates a record with a generated ID, version 1 and the current UTC time.
func NewAuditRecord(action AuditAction, category AuditCategory, severity Severity, description string) AuditRecord {
	return AuditRecord{
		ID:          uuid.NewString(),
		Action:      action,
		Category:    category,
		Severity:    severity,
		Description: description,
		Metadata:    make(map[string]any),
		Version:     1,
		CreatedAt:   time.Now().UTC(),
	}
}

// WithActor returns a copy attributed to the given actor. An empty actor ID marks a
// system or anonymous event.
func (r AuditRecord) WithActor(actorID string) AuditRecord {
	r.ActorID = actorID
	return r
}

// WithClient returns a copy carrying the client IP and user agent, mirrored into metadata.
func (r AuditRecord) WithClient(ip, userAgent string) AuditRecord {
	r.IP = ip
	r.UserAgent = userAgent
	r = r.WithMetadata(MetaIP, ip)
	return r.WithMetadata(MetaUserAgent, userAgent)
}

// WithMetadata returns a copy with key set. Empty string values are skipped.
func (r AuditRecord) WithMetadata(key string, value any) AuditRecord {
	if s, ok := value.(string); ok && s == "" {
		return r
	}
	meta := make(map[string]any, len(r.Metadata)+1)
	for k, v := range r.Metadata {
		meta[k] = v
	}
	meta[key] = value
	r.Metadata = meta
	return r
}

// MergeMetadata returns a copy with every entry of patch applied.
func (r AuditRecord) MergeMetadata(patch map[string]any) AuditRecord {
	meta := make(map[string]any, len(r.Metadata)+len(patch))
	for k, v := range r.Metadata {
		meta[k] = v
	}
	for k, v := range patch {
		meta[k] = v
	}
	r.Metadata = meta
	return r
}

// MetaString returns metadata[key] as a string, or "" when absent or not a string.
func (r AuditRecord) MetaString(key string) string {
	if v, ok := r.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// Validate checks the closed enumerations.
func (r AuditRecord) Validate() error {
	if !r.Action.Valid() {
		return NewValidationError("action", "unknown audit action %q", r.Action)
	}
	if !r.Category.Valid() {
		return NewValidationError("category", "unknown audit category %q", r.Category)
	}
	if !r.Severity.Valid() {
		return NewValidationError("severity", "unknown severity %q", r.Severity)
	}
	return nil
}
