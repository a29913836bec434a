package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/medme/secwatch/internal/domain/model"
	"github.com/medme/secwatch/internal/domain/port/inbound"
	"github.com/medme/secwatch/internal/domain/port/outbound"
	"github.com/medme/secwatch/internal/metrics"
)

const (
	// DefaultFailedLoginThreshold is the consecutive failure count at which a failed
	// login is classified HIGH.
	DefaultFailedLoginThreshold = 5

	maxScriptSampleLen = 256
)

type ReporterConfig struct {
	EscalationThreshold  int
	FailedLoginThreshold int
}

// Reporter classifies inbound security reports, persists them as audit records and
// pages the alerting sink for HIGH and CRITICAL severities.
type Reporter struct {
	audits   outbound.AuditRepository
	users    outbound.UserRepository
	notifier outbound.Notifier
	cache    outbound.Cache
	scorer   Scorer
	cfg      ReporterConfig
	logger   *slog.Logger
}

func NewReporter(
	audits outbound.AuditRepository,
	users outbound.UserRepository,
	notifier outbound.Notifier,
	cache outbound.Cache,
	cfg ReporterConfig,
	logger *slog.Logger,
) *Reporter {
	if cfg.FailedLoginThreshold <= 0 {
		cfg.FailedLoginThreshold = DefaultFailedLoginThreshold
	}
	return &Reporter{
		audits:   audits,
		users:    users,
		notifier: notifier,
		cache:    cache,
		scorer:   NewScorer(cfg.EscalationThreshold),
		cfg:      cfg,
		logger:   logger,
	}
}

var _ inbound.ReportPort = (*Reporter)(nil)

// ReportSecurityAlert implements inbound.ReportPort.
func (r *Reporter) ReportSecurityAlert(ctx context.Context, actor model.Actor, report model.SecurityAlertReport) (model.ReportOutcome, error) {
	if strings.TrimSpace(report.Type) == "" {
		return r.reject("alert", model.NewValidationError("type", "is required"))
	}
	if strings.TrimSpace(report.Message) == "" {
		return r.reject("alert", model.NewValidationError("message", "is required"))
	}

	report.Metadata = model.ClientMetadata(report.Metadata)
	rec, err := r.recordAlert(ctx, actor, report)
	if err != nil {
		return model.ReportOutcome{}, r.failed("alert", err)
	}
	r.count("alert", rec.Severity, model.ReportLogged)
	return model.ReportOutcome{Severity: rec.Severity, Action: model.ReportLogged, RecordID: rec.ID}, nil
}

func (r *Reporter) recordAlert(ctx context.Context, actor model.Actor, report model.SecurityAlertReport) (model.AuditRecord, error) {
	alertType := normalizeType(report.Type)
	severity := ClassifyAlertType(alertType)

	action, category := model.AuditSecurityAlert, model.CategorySecurity
	switch alertType {
	case AlertTypeUnauthorizedAccess:
		action, category = model.AuditUnauthorizedAccess, model.CategoryAuthorization
	case AlertTypeSecurityInitFailure, AlertTypeConfigurationWarning, AlertTypePerformanceDegradation:
		category = model.CategorySystem
	}

	rec := model.NewAuditRecord(action, category, severity, report.Message).
		MergeMetadata(report.Metadata).
		WithMetadata(model.MetaAlertType, alertType)
	return r.persist(ctx, actor, rec)
}

// ReportCSPViolation implements inbound.ReportPort. Known false positives are
// answered IGNORED and not persisted.
func (r *Reporter) ReportCSPViolation(ctx context.Context, actor model.Actor, v model.CSPViolation) (model.ReportOutcome, error) {
	if NormalizeDirective(v) == "" {
		return r.reject("csp", model.NewValidationError("violatedDirective", "is required"))
	}

	a := AnalyzeCSP(v)
	if a.IsFalsePositive() {
		r.count("csp", a.Severity, model.ReportIgnored)
		r.logger.Debug("csp false positive ignored",
			"directive", a.Directive,
			"signature", a.FalsePositive,
		)
		return model.ReportOutcome{
			Severity: a.Severity,
			Action:   model.ReportIgnored,
			Reason:   "known false positive: " + a.FalsePositive,
		}, nil
	}

	blocked := v.BlockedURI
	if blocked == "" {
		blocked = "inline"
	}
	rec := model.NewAuditRecord(model.AuditCSPViolation, model.CategorySecurity, a.Severity,
		fmt.Sprintf("CSP %s violation blocked %s", a.Directive, blocked)).
		WithMetadata("directive", a.Directive).
		WithMetadata("blockedURI", v.BlockedURI).
		WithMetadata("documentURI", v.DocumentURI).
		WithMetadata("sourceFile", v.SourceFile).
		WithMetadata("scriptSample", truncate(v.ScriptSample, maxScriptSampleLen)).
		WithMetadata("disposition", v.Disposition).
		WithMetadata("xssIndicator", a.XSSIndicator).
		WithMetadata("sqlInjectionIndicator", a.SQLIndicator)
	if v.LineNumber > 0 {
		rec = rec.WithMetadata("lineNumber", v.LineNumber)
	}

	rec, err := r.persist(ctx, actor, rec)
	if err != nil {
		return model.ReportOutcome{}, r.failed("csp", err)
	}
	r.count("csp", rec.Severity, model.ReportLogged)
	return model.ReportOutcome{Severity: rec.Severity, Action: model.ReportLogged, RecordID: rec.ID}, nil
}

// ReportSuspiciousActivity implements inbound.ReportPort. A score above the
// escalation threshold produces exactly one additional SUSPICIOUS_ACTIVITY alert
// record and the MONITOR action.
func (r *Reporter) ReportSuspiciousActivity(ctx context.Context, actor model.Actor, act model.SuspiciousActivity) (model.ReportOutcome, error) {
	activityType := normalizeType(act.Type)
	if activityType == "" {
		return r.reject("suspicious", model.NewValidationError("type", "is required"))
	}
	count := max(act.Count, 0)

	severity := ClassifySuspicious(activityType, count)
	score := SuspicionScore(activityType, count)

	rec := model.NewAuditRecord(model.AuditSuspiciousActivity, model.CategorySecurity, severity,
		fmt.Sprintf("Suspicious activity %s observed %d times", activityType, count)).
		MergeMetadata(model.ClientMetadata(act.Metadata)).
		WithMetadata("activityType", activityType).
		WithMetadata("count", count).
		WithMetadata("score", score)

	// An escalated beacon pages once, through its escalation record.
	escalate := r.scorer.ShouldEscalate(score)
	var err error
	if escalate {
		rec, err = r.save(ctx, actor, rec)
	} else {
		rec, err = r.persist(ctx, actor, rec)
	}
	if err != nil {
		return model.ReportOutcome{}, r.failed("suspicious", err)
	}
	outcome := model.ReportOutcome{Severity: severity, Score: &score, Action: model.ReportLogged, RecordID: rec.ID}

	if !escalate {
		r.count("suspicious", severity, model.ReportLogged)
		return outcome, nil
	}

	esc, err := r.recordAlert(ctx, actor, model.SecurityAlertReport{
		Type: AlertTypeSuspiciousActivity,
		Message: fmt.Sprintf("Suspicion score %d for %s exceeds %d; monitor this session closely",
			score, activityType, r.scorer.Threshold()),
		Metadata: map[string]any{
			model.MetaEscalatedFrom: rec.ID,
			"score":                 score,
			"activityType":          activityType,
		},
	})
	if err != nil {
		if rec.Severity.IsAlerting() {
			r.notify(ctx, rec)
		}
		return outcome, r.failed("suspicious", fmt.Errorf("escalate %s: %w", rec.ID, err))
	}
	metrics.EscalationsTotal.Inc()
	r.logger.Warn("suspicious activity escalated",
		"record_id", rec.ID,
		"escalation_id", esc.ID,
		"activity", activityType,
		"score", score,
		"ip", actor.IP,
	)

	outcome.Action = model.ReportMonitor
	outcome.EscalationID = esc.ID
	r.count("suspicious", severity, model.ReportMonitor)
	return outcome, nil
}

// ReportIdentityEvent implements inbound.ReportPort for identity provider webhooks.
func (r *Reporter) ReportIdentityEvent(ctx context.Context, ev model.IdentityEvent) (model.ReportOutcome, error) {
	if strings.TrimSpace(ev.UserID) == "" {
		return r.reject("identity", model.NewValidationError("userId", "is required"))
	}

	var rec model.AuditRecord
	switch ev.Type {
	case model.IdentityLoginSucceeded:
		rec = model.NewAuditRecord(model.AuditLoginSuccess, model.CategoryAuthentication, model.SeverityLow,
			"User signed in")
	case model.IdentityLoginFailed:
		severity := model.SeverityMedium
		if ev.ConsecutiveFailures >= r.cfg.FailedLoginThreshold {
			severity = model.SeverityHigh
		}
		rec = model.NewAuditRecord(model.AuditLoginFailed, model.CategoryAuthentication, severity,
			fmt.Sprintf("Failed sign-in attempt (%d consecutive)", max(ev.ConsecutiveFailures, 1))).
			WithMetadata("consecutiveFailures", ev.ConsecutiveFailures)
	case model.IdentitySessionEnded:
		rec = model.NewAuditRecord(model.AuditLogout, model.CategoryAuthentication, model.SeverityLow,
			"User signed out")
	case model.IdentityUserCreated, model.IdentityUserUpdated:
		if err := r.upsertUser(ctx, ev); err != nil {
			return model.ReportOutcome{}, r.failed("identity", err)
		}
		rec = model.NewAuditRecord(model.AuditUserUpserted, model.CategoryDataModification, model.SeverityLow,
			fmt.Sprintf("User profile %s", strings.TrimPrefix(string(ev.Type), "user."))).
			WithMetadata("role", ev.Role).
			WithMetadata("verified", ev.Verified)
	default:
		return r.reject("identity", model.NewValidationError("type", "unsupported identity event %q", ev.Type))
	}

	if !ev.OccurredAt.IsZero() {
		rec = rec.WithMetadata("occurredAt", model.FormatMetaTime(ev.OccurredAt))
	}
	rec = rec.WithMetadata("email", ev.Email)

	actor := model.Actor{ID: ev.UserID, IP: ev.IP, UserAgent: ev.UserAgent}
	rec, err := r.persist(ctx, actor, rec)
	if err != nil {
		return model.ReportOutcome{}, r.failed("identity", err)
	}
	r.count("identity", rec.Severity, model.ReportLogged)
	return model.ReportOutcome{Severity: rec.Severity, Action: model.ReportLogged, RecordID: rec.ID}, nil
}

func (r *Reporter) upsertUser(ctx context.Context, ev model.IdentityEvent) error {
	role := model.ParseRole(ev.Role)
	if role == "" {
		role = model.RolePatient
	}
	now := time.Now().UTC()
	created := now
	if ev.Type == model.IdentityUserCreated && !ev.OccurredAt.IsZero() {
		created = ev.OccurredAt.UTC()
	}
	err := r.users.Upsert(ctx, model.User{
		ID:        ev.UserID,
		Email:     ev.Email,
		Role:      role,
		Verified:  ev.Verified,
		CreatedAt: created,
		UpdatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("%w: upsert user %s: %w", model.ErrStoreUnavailable, ev.UserID, err)
	}
	return nil
}

// persist saves rec and notifies the alerting sink for HIGH and CRITICAL records.
// Notification failures never fail the write.
func (r *Reporter) persist(ctx context.Context, actor model.Actor, rec model.AuditRecord) (model.AuditRecord, error) {
	saved, err := r.save(ctx, actor, rec)
	if err != nil {
		return model.AuditRecord{}, err
	}
	if saved.Severity.IsAlerting() {
		r.notify(ctx, saved)
	}
	return saved, nil
}

// save writes rec attributed to actor and invalidates cached feeds.
func (r *Reporter) save(ctx context.Context, actor model.Actor, rec model.AuditRecord) (model.AuditRecord, error) {
	rec = rec.WithActor(actor.ID).WithClient(actor.IP, actor.UserAgent)
	if err := rec.Validate(); err != nil {
		return model.AuditRecord{}, err
	}

	saved, err := r.audits.Create(ctx, rec)
	if err != nil {
		return model.AuditRecord{}, fmt.Errorf("%w: create audit record: %w", model.ErrStoreUnavailable, err)
	}
	if err := r.cache.Purge(ctx); err != nil {
		r.logger.Warn("failed to purge feed cache", "error", err)
	}
	return saved, nil
}

func (r *Reporter) notify(ctx context.Context, rec model.AuditRecord) {
	category := alertCategoryOf(rec.Category)
	err := r.notifier.NotifySecurityAlert(ctx, outbound.AlertNotification{
		RecordID:    rec.ID,
		Title:       alertTitle(category),
		Description: rec.Description,
		Severity:    string(rec.Severity),
		Category:    string(category),
		Metadata:    rec.Metadata,
	})
	if err != nil {
		metrics.NotificationFailuresTotal.Inc()
		r.logger.Error("failed to notify alerting sink",
			"record_id", rec.ID,
			"severity", rec.Severity,
			"error", err,
		)
	}
}

func (r *Reporter) reject(kind string, err error) (model.ReportOutcome, error) {
	metrics.ReportFailuresTotal.WithLabelValues(kind, "validation").Inc()
	return model.ReportOutcome{}, err
}

func (r *Reporter) failed(kind string, err error) error {
	metrics.ReportFailuresTotal.WithLabelValues(kind, "store").Inc()
	r.logger.Error("failed to record security report", "kind", kind, "error", err)
	return err
}

func (r *Reporter) count(kind string, sev model.Severity, action model.ReportAction) {
	metrics.ReportsTotal.WithLabelValues(kind, string(sev), string(action)).Inc()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}
