package inbound

import (
	"context"
	"time"

	"github.com/medme/secwatch/internal/domain/model"
	"github.com/medme/secwatch/internal/domain/port/outbound"
)

// ReportPort accepts security reports and returns a definite classification outcome.
type ReportPort interface {
	ReportSecurityAlert(ctx context.Context, actor model.Actor, report model.SecurityAlertReport) (model.ReportOutcome, error)
	ReportCSPViolation(ctx context.Context, actor model.Actor, violation model.CSPViolation) (model.ReportOutcome, error)
	ReportSuspiciousActivity(ctx context.Context, actor model.Actor, activity model.SuspiciousActivity) (model.ReportOutcome, error)
	ReportIdentityEvent(ctx context.Context, event model.IdentityEvent) (model.ReportOutcome, error)
}

// FeedPort serves the admin-facing security feed. Reads never fail on store errors;
// the returned status says whether the data is live, empty or unavailable.
type FeedPort interface {
	Events(ctx context.Context, window time.Duration, limit int) model.FeedResult[model.SecurityEvent]
	Alerts(ctx context.Context, window time.Duration, limit int) model.FeedResult[model.SecurityAlert]
	Metrics(ctx context.Context) model.SecurityMetrics
	Audit(ctx context.Context, filter outbound.AuditFilter, page outbound.PageRequest) (outbound.PageResult[model.AuditRecord], error)
}

type AlertActionRequest struct {
	AlertID         string
	Action          model.AlertAction
	ExpectedVersion *int64
}

// LifecyclePort applies acknowledge/resolve actions to alerts.
type LifecyclePort interface {
	ApplyAlertAction(ctx context.Context, actor model.Actor, req AlertActionRequest) (model.SecurityAlert, error)
}
