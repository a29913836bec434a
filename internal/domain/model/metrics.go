package model

import "time"

type CategoryScores struct {
	Authentication   int `json:"authentication"`
	Authorization    int `json:"authorization"`
	AccessControl    int `json:"accessControl"`
	DataProtection   int `json:"dataProtection"`
	ThreatMonitoring int `json:"threatMonitoring"`
}

type MetricCounters struct {
	TotalUsers         int64 `json:"totalUsers"`
	VerifiedUsers      int64 `json:"verifiedUsers"`
	AdminUsers         int64 `json:"adminUsers"`
	SuccessfulLogins   int64 `json:"successfulLogins"`
	FailedLogins       int64 `json:"failedLogins"`
	UnauthorizedAccess int64 `json:"unauthorizedAccess"`
	PrivilegeChanges   int64 `json:"privilegeChanges"`
	DataExports        int64 `json:"dataExports"`
	HighDataEvents     int64 `json:"highDataEvents"`
	CSPViolations      int64 `json:"cspViolations"`
	SuspiciousActivity int64 `json:"suspiciousActivity"`
	HighSeverityEvents int64 `json:"highSeverityEvents"`
	CriticalEvents     int64 `json:"criticalEvents"`
}

// SecurityMetrics is a point-in-time health snapshot. It is recomputed on request.
type SecurityMetrics struct {
	OverallScore int            `json:"overallScore"`
	Scores       CategoryScores `json:"scores"`
	Counters     MetricCounters `json:"counters"`
	Window       string         `json:"window"`
	GeneratedAt  time.Time      `json:"generatedAt"`
	Status       FeedStatus     `json:"status"`
	Sample       bool           `json:"sample,omitempty"`
}
