package service

import (
	"math"

	"github.com/medme/secwatch/internal/domain/model"
)

// Category weights in percent; they sum to 100.
const (
	weightAuthentication   = 25
	weightAuthorization    = 20
	weightAccessControl    = 15
	weightDataProtection   = 20
	weightThreatMonitoring = 20

	adminRatioAllowance = 0.05
)

// ComputeMetrics derives the per-category health scores and the weighted overall
// score from raw counters.
func ComputeMetrics(c model.MetricCounters) model.SecurityMetrics {
	s := model.CategoryScores{
		Authentication:   authenticationScore(c),
		Authorization:    authorizationScore(c),
		AccessControl:    accessControlScore(c),
		DataProtection:   dataProtectionScore(c),
		ThreatMonitoring: threatMonitoringScore(c),
	}
	overall := (s.Authentication*weightAuthentication +
		s.Authorization*weightAuthorization +
		s.AccessControl*weightAccessControl +
		s.DataProtection*weightDataProtection +
		s.ThreatMonitoring*weightThreatMonitoring + 50) / 100

	return model.SecurityMetrics{
		OverallScore: clampScore(overall),
		Scores:       s,
		Counters:     c,
		Status:       model.FeedLive,
	}
}

func authenticationScore(c model.MetricCounters) int {
	penalty := capped(c.FailedLogins*2, 50)
	if c.TotalUsers > 0 {
		unverified := 1 - float64(c.VerifiedUsers)/float64(c.TotalUsers)
		penalty += round(30 * unverified)
	}
	if attempts := c.FailedLogins + c.SuccessfulLogins; attempts > 0 {
		penalty += round(20 * float64(c.FailedLogins) / float64(attempts))
	}
	return clampScore(100 - penalty)
}

func authorizationScore(c model.MetricCounters) int {
	return clampScore(100 - capped(c.UnauthorizedAccess*10, 60) - capped(c.PrivilegeChanges*2, 20))
}

func accessControlScore(c model.MetricCounters) int {
	penalty := capped(c.UnauthorizedAccess*5, 40)
	if c.TotalUsers > 0 {
		ratio := float64(c.AdminUsers) / float64(c.TotalUsers)
		if ratio > adminRatioAllowance {
			penalty += min(round((ratio-adminRatioAllowance)*300), 30)
		}
	}
	return clampScore(100 - penalty)
}

func dataProtectionScore(c model.MetricCounters) int {
	return clampScore(100 - capped(c.DataExports*2, 40) - capped(c.HighDataEvents*10, 50))
}

func threatMonitoringScore(c model.MetricCounters) int {
	penalty := capped(c.CriticalEvents*15+c.HighSeverityEvents*5, 50) +
		capped(c.CSPViolations, 20) +
		capped(c.SuspiciousActivity*2, 25)
	return clampScore(100 - penalty)
}

func capped(v int64, limit int) int {
	if v > int64(limit) {
		return limit
	}
	if v < 0 {
		return 0
	}
	return int(v)
}

func round(f float64) int {
	return int(math.Round(f))
}
