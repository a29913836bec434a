package service

import (
	"strings"

	"github.com/medme/secwatch/internal/domain/model"
)

var eventTypeByAction = map[model.AuditAction]string{
	model.AuditLoginSuccess:       "login",
	model.AuditLoginFailed:        "failed_login",
	model.AuditLogout:             "logout",
	model.AuditPermissionChange:   "permission_change",
	model.AuditRoleChange:         "permission_change",
	model.AuditUnauthorizedAccess: "unauthorized_access",
	model.AuditDataAccess:         "data_access",
	model.AuditDataExport:         "data_export",
	model.AuditDataModification:   "data_modification",
	model.AuditSecurityAlert:      "security_alert",
	model.AuditCSPViolation:       "csp_violation",
	model.AuditSuspiciousActivity: "suspicious_activity",
	model.AuditAlertAcknowledged:  "admin_action",
	model.AuditAlertResolved:      "admin_action",
	model.AuditUserUpserted:       "user_change",
}

var eventCategory = map[model.AuditCategory]string{
	model.CategoryAuthentication:   "authentication",
	model.CategoryAuthorization:    "authorization",
	model.CategoryDataAccess:       "data_access",
	model.CategoryDataModification: "data_access",
	model.CategorySecurity:         "security",
	model.CategorySystem:           "system",
	model.CategoryCompliance:       "compliance",
}

// EventFromRecord projects an audit record into the admin event shape.
func EventFromRecord(rec model.AuditRecord) model.SecurityEvent {
	typ, ok := eventTypeByAction[rec.Action]
	if !ok {
		typ = strings.ToLower(string(rec.Action))
	}
	category, ok := eventCategory[rec.Category]
	if !ok {
		category = strings.ToLower(string(rec.Category))
	}

	ip, ua := rec.IP, rec.UserAgent
	if ip == "" {
		ip = rec.MetaString(model.MetaIP)
	}
	if ua == "" {
		ua = rec.MetaString(model.MetaUserAgent)
	}

	return model.SecurityEvent{
		ID:          rec.ID,
		Type:        typ,
		Category:    category,
		Severity:    rec.Severity.Lower(),
		Description: rec.Description,
		UserID:      rec.ActorID,
		IP:          ip,
		UserAgent:   ua,
		Timestamp:   rec.CreatedAt,
		Metadata:    rec.Metadata,
		Sample:      isSample(rec),
	}
}

func alertCategoryOf(c model.AuditCategory) model.AlertCategory {
	switch c {
	case model.CategoryAuthentication:
		return model.AlertCategoryAuthentication
	case model.CategoryAuthorization:
		return model.AlertCategoryAuthorization
	case model.CategoryDataAccess, model.CategoryDataModification, model.CategoryCompliance:
		return model.AlertCategoryDataBreach
	}
	return model.AlertCategorySuspiciousActivity
}

func alertTitle(c model.AlertCategory) string {
	switch c {
	case model.AlertCategoryAuthentication:
		return "Authentication Threat"
	case model.AlertCategoryAuthorization:
		return "Unauthorized Access Attempt"
	case model.AlertCategoryDataBreach:
		return "Potential Data Breach"
	}
	return "Suspicious Activity Detected"
}

// AlertFromRecord projects a HIGH or CRITICAL audit record into the alert shape.
// Lifecycle fields are derived from the record's metadata.
func AlertFromRecord(rec model.AuditRecord) model.SecurityAlert {
	category := alertCategoryOf(rec.Category)
	a := model.SecurityAlert{
		ID:          rec.ID,
		Title:       alertTitle(category),
		Description: rec.Description,
		Severity:    rec.Severity.Lower(),
		Category:    category,
		Timestamp:   rec.CreatedAt,
		State:       model.AlertStateOf(rec),
		Version:     rec.Version,
		Sample:      isSample(rec),
	}
	if a.State != model.AlertStateOpen {
		a.Acknowledged = true
		a.AcknowledgedBy = rec.MetaString(model.MetaAcknowledgedBy)
		if at, ok := model.ParseMetaTime(rec.MetaString(model.MetaAcknowledgedAt)); ok {
			a.AcknowledgedAt = &at
		}
	}
	if a.State == model.AlertStateResolved {
		a.Resolved = true
		a.ResolvedBy = rec.MetaString(model.MetaResolvedBy)
		if at, ok := model.ParseMetaTime(rec.MetaString(model.MetaResolvedAt)); ok {
			a.ResolvedAt = &at
		}
	}
	return a
}

func isSample(rec model.AuditRecord) bool {
	v, _ := rec.Metadata[model.MetaSample].(bool)
	return v
}
