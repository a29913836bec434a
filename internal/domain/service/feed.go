package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/medme/secwatch/internal/domain/model"
	"github.com/medme/secwatch/internal/domain/port/inbound"
	"github.com/medme/secwatch/internal/domain/port/outbound"
	"github.com/medme/secwatch/internal/metrics"
)

const (
	DefaultFeedWindow = 24 * time.Hour
	DefaultFeedLimit  = 50
	MaxFeedLimit      = 500
)

type FeedConfig struct {
	DefaultWindow time.Duration
	DefaultLimit  int
	MaxLimit      int
	// SampleOnEmpty substitutes demonstration data when a live query returns no rows.
	// Store failures always substitute.
	SampleOnEmpty bool
}

// Feed normalises stored audit records into the admin event, alert and metrics
// views. Store failures never propagate from the feed reads.
type Feed struct {
	audits outbound.AuditRepository
	users  outbound.UserRepository
	cache  outbound.Cache
	cfg    FeedConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewFeed(audits outbound.AuditRepository, users outbound.UserRepository, cache outbound.Cache, cfg FeedConfig, logger *slog.Logger) *Feed {
	if cfg.DefaultWindow <= 0 {
		cfg.DefaultWindow = DefaultFeedWindow
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultFeedLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = MaxFeedLimit
	}
	return &Feed{
		audits: audits,
		users:  users,
		cache:  cache,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

var _ inbound.FeedPort = (*Feed)(nil)

func (f *Feed) bounds(window time.Duration, limit int) (time.Duration, int) {
	if window <= 0 {
		window = f.cfg.DefaultWindow
	}
	if limit <= 0 {
		limit = f.cfg.DefaultLimit
	}
	return window, min(limit, f.cfg.MaxLimit)
}

// Events implements inbound.FeedPort.
func (f *Feed) Events(ctx context.Context, window time.Duration, limit int) model.FeedResult[model.SecurityEvent] {
	window, limit = f.bounds(window, limit)
	key := fmt.Sprintf("events:%s:%d", window, limit)

	var res model.FeedResult[model.SecurityEvent]
	if f.cached(ctx, key, &res) {
		return res
	}

	recs, err := f.recent(ctx, outbound.AuditFilter{}, window, limit)
	res = model.FeedResult[model.SecurityEvent]{Items: make([]model.SecurityEvent, 0, len(recs))}
	for _, rec := range recs {
		res.Items = append(res.Items, EventFromRecord(rec))
	}
	res.Status = f.status("events", err, len(recs))

	if f.substitute(res.Status) {
		res.Items = SampleEvents(f.now())
		res.Sample = true
	}
	if res.Status == model.FeedLive {
		f.store(ctx, key, res)
	}
	return res
}

// Alerts implements inbound.FeedPort. Alerts are HIGH and CRITICAL records within
// the window, newest first.
func (f *Feed) Alerts(ctx context.Context, window time.Duration, limit int) model.FeedResult[model.SecurityAlert] {
	window, limit = f.bounds(window, limit)
	key := fmt.Sprintf("alerts:%s:%d", window, limit)

	var res model.FeedResult[model.SecurityAlert]
	if f.cached(ctx, key, &res) {
		return res
	}

	filter := outbound.AuditFilter{Severities: model.SeveritiesAtLeast(model.SeverityHigh)}
	recs, err := f.recent(ctx, filter, window, limit)
	res = model.FeedResult[model.SecurityAlert]{Items: make([]model.SecurityAlert, 0, len(recs))}
	for _, rec := range recs {
		res.Items = append(res.Items, AlertFromRecord(rec))
	}
	res.Status = f.status("alerts", err, len(recs))

	if f.substitute(res.Status) {
		res.Items = SampleAlerts(f.now())
		res.Sample = true
	}
	if res.Status == model.FeedLive {
		f.store(ctx, key, res)
	}
	return res
}

// Metrics implements inbound.FeedPort. The snapshot covers the default window.
func (f *Feed) Metrics(ctx context.Context) model.SecurityMetrics {
	const key = "metrics"
	var m model.SecurityMetrics
	if f.cached(ctx, key, &m) {
		return m
	}

	now := f.now()
	counters, err := f.collectCounters(ctx, now.Add(-f.cfg.DefaultWindow))
	if err != nil {
		f.logger.Warn("security metrics unavailable, serving sample snapshot", "error", err)
		metrics.FeedReadsTotal.WithLabelValues("metrics", string(model.FeedUnavailable)).Inc()
		m = SampleMetrics(now)
		m.Status = model.FeedUnavailable
		m.Window = f.cfg.DefaultWindow.String()
		return m
	}

	metrics.FeedReadsTotal.WithLabelValues("metrics", string(model.FeedLive)).Inc()
	m = ComputeMetrics(counters)
	m.GeneratedAt = now.UTC()
	m.Window = f.cfg.DefaultWindow.String()
	f.store(ctx, key, m)
	return m
}

// Audit implements inbound.FeedPort. Unlike the feeds, audit queries surface
// store failures to the caller.
func (f *Feed) Audit(ctx context.Context, filter outbound.AuditFilter, page outbound.PageRequest) (outbound.PageResult[model.AuditRecord], error) {
	if page.Page < 1 {
		page.Page = 1
	}
	if page.Size <= 0 {
		page.Size = f.cfg.DefaultLimit
	}
	page.Size = min(page.Size, f.cfg.MaxLimit)
	if page.OrderBy == "" {
		page.OrderBy = "created_at"
		page.Desc = true
	}
	res, err := f.audits.List(ctx, filter, page)
	if err != nil {
		return outbound.PageResult[model.AuditRecord]{}, fmt.Errorf("%w: list audit records: %w", model.ErrStoreUnavailable, err)
	}
	return res, nil
}

func (f *Feed) recent(ctx context.Context, filter outbound.AuditFilter, window time.Duration, limit int) ([]model.AuditRecord, error) {
	since := f.now().Add(-window)
	filter.Since = &since
	res, err := f.audits.List(ctx, filter, outbound.PageRequest{Page: 1, Size: limit, OrderBy: "created_at", Desc: true})
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

func (f *Feed) status(feed string, err error, n int) model.FeedStatus {
	status := model.FeedLive
	switch {
	case err != nil:
		status = model.FeedUnavailable
		f.logger.Warn("security feed unavailable", "feed", feed, "error", err)
	case n == 0:
		status = model.FeedEmpty
	}
	metrics.FeedReadsTotal.WithLabelValues(feed, string(status)).Inc()
	return status
}

func (f *Feed) substitute(status model.FeedStatus) bool {
	return status == model.FeedUnavailable || (status == model.FeedEmpty && f.cfg.SampleOnEmpty)
}

func (f *Feed) collectCounters(ctx context.Context, since time.Time) (model.MetricCounters, error) {
	var c model.MetricCounters
	verified := true
	g, gctx := errgroup.WithContext(ctx)

	countUsers := func(dst *int64, filter outbound.UserFilter) {
		g.Go(func() error {
			n, err := f.users.Count(gctx, filter)
			if err != nil {
				return fmt.Errorf("count users: %w", err)
			}
			*dst = n
			return nil
		})
	}
	countAudits := func(dst *int64, filter outbound.AuditFilter) {
		filter.Since = &since
		g.Go(func() error {
			n, err := f.audits.Count(gctx, filter)
			if err != nil {
				return fmt.Errorf("count audit records: %w", err)
			}
			*dst = n
			return nil
		})
	}
	actions := func(a ...model.AuditAction) outbound.AuditFilter {
		return outbound.AuditFilter{Actions: a}
	}

	countUsers(&c.TotalUsers, outbound.UserFilter{})
	countUsers(&c.VerifiedUsers, outbound.UserFilter{Verified: &verified})
	countUsers(&c.AdminUsers, outbound.UserFilter{Role: model.RoleAdmin})
	countAudits(&c.SuccessfulLogins, actions(model.AuditLoginSuccess))
	countAudits(&c.FailedLogins, actions(model.AuditLoginFailed))
	countAudits(&c.UnauthorizedAccess, actions(model.AuditUnauthorizedAccess))
	countAudits(&c.PrivilegeChanges, actions(model.AuditPermissionChange, model.AuditRoleChange))
	countAudits(&c.DataExports, actions(model.AuditDataExport))
	countAudits(&c.CSPViolations, actions(model.AuditCSPViolation))
	countAudits(&c.SuspiciousActivity, actions(model.AuditSuspiciousActivity))
	countAudits(&c.HighDataEvents, outbound.AuditFilter{
		Categories: []model.AuditCategory{model.CategoryDataAccess, model.CategoryDataModification},
		Severities: model.SeveritiesAtLeast(model.SeverityHigh),
	})
	countAudits(&c.HighSeverityEvents, outbound.AuditFilter{Severities: []model.Severity{model.SeverityHigh}})
	countAudits(&c.CriticalEvents, outbound.AuditFilter{Severities: []model.Severity{model.SeverityCritical}})

	if err := g.Wait(); err != nil {
		return model.MetricCounters{}, err
	}
	return c, nil
}

func (f *Feed) cached(ctx context.Context, key string, dst any) bool {
	raw, ok := f.cache.Get(ctx, key)
	if !ok {
		metrics.CacheMissesTotal.Inc()
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		f.logger.Debug("discarding undecodable cache entry", "key", key, "error", err)
		metrics.CacheMissesTotal.Inc()
		return false
	}
	metrics.CacheHitsTotal.Inc()
	return true
}

func (f *Feed) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := f.cache.Set(ctx, key, raw); err != nil {
		f.logger.Debug("failed to cache feed", "key", key, "error", err)
	}
}
