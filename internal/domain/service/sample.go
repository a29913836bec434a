package service

import (
	"time"

	"github.com/medme/secwatch/internal/domain/model"
)

type sampleSpec struct {
	id          string
	action      model.AuditAction
	category    model.AuditCategory
	severity    model.Severity
	description string
	actorID     string
	ip          string
	age         time.Duration
	meta        map[string]any
}

// Demonstration records shown when the store is unavailable (or empty, if so
// configured). IDs carry the sample- prefix and metadata.sample is true.
var sampleSpecs = []sampleSpec{
	{
		id: "sample-evt-1", action: model.AuditLoginFailed, category: model.CategoryAuthentication,
		severity: model.SeverityMedium, description: "Failed sign-in attempt (3 consecutive)",
		actorID: "sample-user-1", ip: "203.0.113.10", age: 5 * time.Minute,
		meta: map[string]any{"consecutiveFailures": 3},
	},
	{
		id: "sample-evt-2", action: model.AuditCSPViolation, category: model.CategorySecurity,
		severity: model.SeverityHigh, description: "CSP script-src violation blocked https://cdn.example.invalid/x.js",
		ip: "198.51.100.7", age: 20 * time.Minute,
		meta: map[string]any{"directive": "script-src", "blockedURI": "https://cdn.example.invalid/x.js"},
	},
	{
		id: "sample-evt-3", action: model.AuditUnauthorizedAccess, category: model.CategoryAuthorization,
		severity: model.SeverityHigh, description: "Patient account requested the admin dashboard",
		actorID: "sample-user-2", ip: "192.0.2.44", age: 45 * time.Minute,
		meta: map[string]any{"alertType": AlertTypeUnauthorizedAccess},
	},
	{
		id: "sample-evt-4", action: model.AuditSecurityAlert, category: model.CategorySecurity,
		severity: model.SeverityCritical, description: "Suspicion score 80 for AUTOMATED_BEHAVIOR exceeds 75; monitor this session closely",
		ip: "192.0.2.99", age: 2 * time.Hour,
		meta: map[string]any{"alertType": AlertTypeSuspiciousActivity, "score": 80},
	},
	{
		id: "sample-evt-5", action: model.AuditLoginSuccess, category: model.CategoryAuthentication,
		severity: model.SeverityLow, description: "User signed in",
		actorID: "sample-user-3", ip: "203.0.113.52", age: 3 * time.Hour,
	},
	{
		id: "sample-evt-6", action: model.AuditDataExport, category: model.CategoryDataAccess,
		severity: model.SeverityMedium, description: "Doctor exported consultation history",
		actorID: "sample-user-4", ip: "198.51.100.23", age: 6 * time.Hour,
	},
}

func sampleRecords(now time.Time) []model.AuditRecord {
	out := make([]model.AuditRecord, 0, len(sampleSpecs))
	for _, s := range sampleSpecs {
		rec := model.AuditRecord{
			ID:          s.id,
			Action:      s.action,
			Category:    s.category,
			Severity:    s.severity,
			Description: s.description,
			ActorID:     s.actorID,
			IP:          s.ip,
			Metadata:    map[string]any{model.MetaSample: true},
			Version:     1,
			CreatedAt:   now.Add(-s.age).UTC(),
		}
		rec = rec.MergeMetadata(s.meta).WithMetadata(model.MetaIP, s.ip)
		out = append(out, rec)
	}
	return out
}

// SampleEvents returns the demonstration event feed, newest first.
func SampleEvents(now time.Time) []model.SecurityEvent {
	recs := sampleRecords(now)
	out := make([]model.SecurityEvent, 0, len(recs))
	for _, rec := range recs {
		out = append(out, EventFromRecord(rec))
	}
	return out
}

// SampleAlerts returns the demonstration alert feed, newest first.
func SampleAlerts(now time.Time) []model.SecurityAlert {
	var out []model.SecurityAlert
	for _, rec := range sampleRecords(now) {
		if rec.Severity.IsAlerting() {
			out = append(out, AlertFromRecord(rec))
		}
	}
	return out
}

// SampleMetrics returns a demonstration metrics snapshot.
func SampleMetrics(now time.Time) model.SecurityMetrics {
	counters := model.MetricCounters{
		TotalUsers:         120,
		VerifiedUsers:      104,
		AdminUsers:         3,
		SuccessfulLogins:   310,
		FailedLogins:       12,
		UnauthorizedAccess: 1,
		PrivilegeChanges:   2,
		DataExports:        4,
		CSPViolations:      6,
		SuspiciousActivity: 2,
		HighSeverityEvents: 2,
		CriticalEvents:     1,
	}
	m := ComputeMetrics(counters)
	m.GeneratedAt = now.UTC()
	m.Sample = true
	return m
}
