package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/medme/secwatch/internal/domain/model"
	"github.com/medme/secwatch/internal/domain/port/inbound"
	"github.com/medme/secwatch/internal/domain/port/outbound"
	"github.com/medme/secwatch/internal/metrics"
)

// maxTransitionAttempts bounds re-reads when a concurrent writer bumps the version
// of a record the caller did not pin.
const maxTransitionAttempts = 3

// Lifecycle applies acknowledge and resolve actions to alerts as version-guarded
// metadata merges on the source audit record.
type Lifecycle struct {
	audits outbound.AuditRepository
	cache  outbound.Cache
	logger *slog.Logger
	now    func() time.Time
}

func NewLifecycle(audits outbound.AuditRepository, cache outbound.Cache, logger *slog.Logger) *Lifecycle {
	return &Lifecycle{audits: audits, cache: cache, logger: logger, now: time.Now}
}

var _ inbound.LifecyclePort = (*Lifecycle)(nil)

// ApplyAlertAction implements inbound.LifecyclePort. Repeating an action that has
// already taken effect is a no-op. A pinned ExpectedVersion that no longer matches
// yields model.ErrConflict.
func (l *Lifecycle) ApplyAlertAction(ctx context.Context, actor model.Actor, req inbound.AlertActionRequest) (model.SecurityAlert, error) {
	alert, noop, err := l.apply(ctx, actor, req)
	l.recordOutcome(ctx, actor, req, noop, err)
	if err != nil {
		return model.SecurityAlert{}, err
	}
	if !noop {
		if err := l.cache.Purge(ctx); err != nil {
			l.logger.Warn("failed to purge feed cache", "error", err)
		}
	}
	return alert, nil
}

func (l *Lifecycle) apply(ctx context.Context, actor model.Actor, req inbound.AlertActionRequest) (model.SecurityAlert, bool, error) {
	if !actor.Authenticated() {
		return model.SecurityAlert{}, false, fmt.Errorf("alert action requires an authenticated actor: %w", model.ErrForbidden)
	}

	for attempt := 1; ; attempt++ {
		rec, err := l.audits.GetByID(ctx, req.AlertID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.SecurityAlert{}, false, fmt.Errorf("alert %s: %w", req.AlertID, model.ErrNotFound)
			}
			return model.SecurityAlert{}, false, fmt.Errorf("%w: get alert %s: %w", model.ErrStoreUnavailable, req.AlertID, err)
		}
		if !rec.Severity.IsAlerting() {
			return model.SecurityAlert{}, false, fmt.Errorf("alert %s: %w", req.AlertID, model.ErrNotFound)
		}

		pinned := req.ExpectedVersion != nil
		if pinned && *req.ExpectedVersion != rec.Version {
			return model.SecurityAlert{}, false, fmt.Errorf("alert %s at version %d, expected %d: %w",
				req.AlertID, rec.Version, *req.ExpectedVersion, model.ErrConflict)
		}

		patch, err := model.Transition(rec, req.Action, actor.ID, l.now())
		if err != nil {
			return model.SecurityAlert{}, false, err
		}
		if patch == nil {
			return AlertFromRecord(rec), true, nil
		}

		updated, err := l.audits.UpdateMetadata(ctx, rec.ID, rec.Version, patch)
		switch {
		case err == nil:
			return AlertFromRecord(updated), false, nil
		case errors.Is(err, model.ErrConflict):
			if pinned || attempt >= maxTransitionAttempts {
				return model.SecurityAlert{}, false, fmt.Errorf("alert %s: %w", req.AlertID, model.ErrConflict)
			}
			l.logger.Debug("alert changed concurrently, retrying", "alert_id", req.AlertID, "attempt", attempt)
		case errors.Is(err, model.ErrNotFound):
			return model.SecurityAlert{}, false, fmt.Errorf("alert %s: %w", req.AlertID, model.ErrNotFound)
		default:
			return model.SecurityAlert{}, false, fmt.Errorf("%w: update alert %s: %w", model.ErrStoreUnavailable, req.AlertID, err)
		}
	}
}

// recordOutcome writes the best-effort audit trail of an admin action.
func (l *Lifecycle) recordOutcome(ctx context.Context, actor model.Actor, req inbound.AlertActionRequest, noop bool, actionErr error) {
	outcome := "success"
	switch {
	case actionErr == nil && noop:
		outcome = "noop"
	case errors.Is(actionErr, model.ErrNotFound):
		outcome = "not_found"
	case errors.Is(actionErr, model.ErrConflict):
		outcome = "conflict"
	case actionErr != nil:
		outcome = "failure"
	}
	metrics.AlertActionsTotal.WithLabelValues(string(req.Action), outcome).Inc()

	rec := model.NewAuditRecord(req.Action.AuditAction(), model.CategorySecurity, model.SeverityLow,
		fmt.Sprintf("Alert %s %s by %s", req.AlertID, req.Action, displayActor(actor))).
		WithActor(actor.ID).
		WithClient(actor.IP, actor.UserAgent).
		WithMetadata("alertId", req.AlertID).
		WithMetadata("outcome", outcome).
		WithMetadata("requestId", actor.RequestID)
	if actionErr != nil {
		rec = rec.WithMetadata("error", actionErr.Error())
	}

	if _, err := l.audits.Create(ctx, rec); err != nil {
		l.logger.Error("failed to audit alert action",
			"alert_id", req.AlertID,
			"action", req.Action,
			"outcome", outcome,
			"error", err,
		)
	}
}

func displayActor(a model.Actor) string {
	if a.ID == "" {
		return "anonymous"
	}
	return a.ID
}
