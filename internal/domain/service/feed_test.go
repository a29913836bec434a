package service_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medme/secwatch/internal/domain/model"
	"github.com/medme/secwatch/internal/domain/port/outbound"
	"github.com/medme/secwatch/internal/domain/service"
	"github.com/medme/secwatch/internal/metrics"
)

func newFeed(audits *memAuditRepo, users *memUserRepo, cache *mapCache, cfg service.FeedConfig) *service.Feed {
	return service.NewFeed(audits, users, cache, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func recordAt(action model.AuditAction, cat model.AuditCategory, sev model.Severity, age time.Duration) model.AuditRecord {
	rec := model.NewAuditRecord(action, cat, sev, string(action))
	rec.CreatedAt = time.Now().UTC().Add(-age)
	return rec
}

func TestFeed_EventsLiveNewestFirst(t *testing.T) {
	audits := newMemAuditRepo()
	older := recordAt(model.AuditLoginFailed, model.CategoryAuthentication, model.SeverityMedium, 2*time.Hour)
	newer := recordAt(model.AuditPermissionChange, model.CategoryAuthorization, model.SeverityLow, time.Minute)
	stale := recordAt(model.AuditLoginSuccess, model.CategoryAuthentication, model.SeverityLow, 48*time.Hour)
	audits.put(older)
	audits.put(newer)
	audits.put(stale)

	res := newFeed(audits, newMemUserRepo(), newMapCache(), service.FeedConfig{}).Events(context.Background(), 0, 0)

	assert.Equal(t, model.FeedLive, res.Status)
	assert.False(t, res.Sample)
	require.Len(t, res.Items, 2, "records outside the 24h window are excluded")
	assert.Equal(t, newer.ID, res.Items[0].ID)
	assert.Equal(t, "permission_change", res.Items[0].Type)
	assert.Equal(t, "authorization", res.Items[0].Category)
	assert.Equal(t, "failed_login", res.Items[1].Type)
	assert.Equal(t, "medium", res.Items[1].Severity)
}

func TestFeed_AlertsOnlyHighAndCritical(t *testing.T) {
	audits := newMemAuditRepo()
	audits.put(recordAt(model.AuditCSPViolation, model.CategorySecurity, model.SeverityMedium, time.Minute))
	high := recordAt(model.AuditUnauthorizedAccess, model.CategoryAuthorization, model.SeverityHigh, time.Minute)
	crit := recordAt(model.AuditDataExport, model.CategoryDataAccess, model.SeverityCritical, 2*time.Minute)
	audits.put(high)
	audits.put(crit)

	res := newFeed(audits, newMemUserRepo(), newMapCache(), service.FeedConfig{}).Alerts(context.Background(), 24*time.Hour, 10)

	require.Equal(t, model.FeedLive, res.Status)
	require.Len(t, res.Items, 2)
	assert.Equal(t, model.AlertCategoryAuthorization, res.Items[0].Category)
	assert.Equal(t, model.AlertCategoryDataBreach, res.Items[1].Category)
	assert.Equal(t, "Potential Data Breach", res.Items[1].Title)
	assert.Equal(t, model.AlertStateOpen, res.Items[0].State)
	assert.False(t, res.Items[0].Acknowledged)
}

func TestFeed_UnavailableServesSample(t *testing.T) {
	audits := newMemAuditRepo()
	audits.listErr = errStoreDown
	feed := newFeed(audits, newMemUserRepo(), newMapCache(), service.FeedConfig{})

	alerts := feed.Alerts(context.Background(), 0, 0)
	assert.Equal(t, model.FeedUnavailable, alerts.Status)
	assert.True(t, alerts.Sample)
	require.NotEmpty(t, alerts.Items)
	for _, a := range alerts.Items {
		assert.True(t, strings.HasPrefix(a.ID, "sample-"), "sample ids are labelled")
		assert.True(t, a.Sample)
		assert.NotEmpty(t, a.Title)
	}

	events := feed.Events(context.Background(), 0, 0)
	assert.Equal(t, model.FeedUnavailable, events.Status)
	assert.NotEmpty(t, events.Items)
}

func TestFeed_EmptyIsDistinctFromUnavailable(t *testing.T) {
	feed := newFeed(newMemAuditRepo(), newMemUserRepo(), newMapCache(), service.FeedConfig{})
	res := feed.Alerts(context.Background(), 0, 0)
	assert.Equal(t, model.FeedEmpty, res.Status)
	assert.False(t, res.Sample)
	assert.Empty(t, res.Items)

	feed = newFeed(newMemAuditRepo(), newMemUserRepo(), newMapCache(), service.FeedConfig{SampleOnEmpty: true})
	res = feed.Alerts(context.Background(), 0, 0)
	assert.Equal(t, model.FeedEmpty, res.Status)
	assert.True(t, res.Sample)
	assert.NotEmpty(t, res.Items)
}

func TestFeed_CachesLiveResults(t *testing.T) {
	audits := newMemAuditRepo()
	audits.put(recordAt(model.AuditSecurityAlert, model.CategorySecurity, model.SeverityHigh, time.Minute))
	cache := newMapCache()
	feed := newFeed(audits, newMemUserRepo(), cache, service.FeedConfig{})

	first := feed.Alerts(context.Background(), time.Hour, 5)
	require.Len(t, first.Items, 1)

	audits.listErr = errStoreDown
	second := feed.Alerts(context.Background(), time.Hour, 5)
	assert.Equal(t, model.FeedLive, second.Status, "served from cache")
	assert.Equal(t, first.Items[0].ID, second.Items[0].ID)
}

func TestFeed_CacheMetricsCountedOncePerLookup(t *testing.T) {
	audits := newMemAuditRepo()
	audits.put(recordAt(model.AuditSecurityAlert, model.CategorySecurity, model.SeverityHigh, time.Minute))
	cache := newMapCache()
	feed := newFeed(audits, newMemUserRepo(), cache, service.FeedConfig{})
	ctx := context.Background()

	hits := testutil.ToFloat64(metrics.CacheHitsTotal)
	misses := testutil.ToFloat64(metrics.CacheMissesTotal)

	feed.Alerts(ctx, time.Hour, 5)
	assert.Equal(t, misses+1, testutil.ToFloat64(metrics.CacheMissesTotal))
	assert.Equal(t, hits, testutil.ToFloat64(metrics.CacheHitsTotal))

	feed.Alerts(ctx, time.Hour, 5)
	assert.Equal(t, hits+1, testutil.ToFloat64(metrics.CacheHitsTotal))
	assert.Equal(t, misses+1, testutil.ToFloat64(metrics.CacheMissesTotal))

	cache.mu.Lock()
	for k := range cache.items {
		cache.items[k] = []byte("{not json")
	}
	cache.mu.Unlock()

	res := feed.Alerts(ctx, time.Hour, 5)
	assert.Equal(t, model.FeedLive, res.Status)
	assert.Equal(t, hits+1, testutil.ToFloat64(metrics.CacheHitsTotal), "undecodable entry is not a hit")
	assert.Equal(t, misses+2, testutil.ToFloat64(metrics.CacheMissesTotal), "undecodable entry is one miss")
}

func TestFeed_AlertProjectionCarriesLifecycle(t *testing.T) {
	audits := newMemAuditRepo()
	rec := recordAt(model.AuditSecurityAlert, model.CategorySecurity, model.SeverityHigh, time.Minute)
	at := time.Now().UTC().Truncate(time.Second)
	rec = rec.MergeMetadata(map[string]any{
		model.MetaAcknowledgedBy: "admin-1",
		model.MetaAcknowledgedAt: model.FormatMetaTime(at),
		model.MetaResolvedBy:     "admin-1",
		model.MetaResolvedAt:     model.FormatMetaTime(at),
	})
	audits.put(rec)

	res := newFeed(audits, newMemUserRepo(), newMapCache(), service.FeedConfig{}).Alerts(context.Background(), 0, 0)
	require.Len(t, res.Items, 1)
	a := res.Items[0]
	assert.Equal(t, model.AlertStateResolved, a.State)
	assert.True(t, a.Acknowledged)
	assert.True(t, a.Resolved)
	require.NotNil(t, a.ResolvedAt)
	assert.True(t, a.ResolvedAt.Equal(at))
	assert.Equal(t, "admin-1", a.ResolvedBy)
}

func TestFeed_Metrics(t *testing.T) {
	audits := newMemAuditRepo()
	users := newMemUserRepo()
	ctx := context.Background()
	require.NoError(t, users.Upsert(ctx, model.User{ID: "a", Role: model.RoleAdmin, Verified: true}))
	require.NoError(t, users.Upsert(ctx, model.User{ID: "p", Role: model.RolePatient, Verified: false}))
	for i := 0; i < 3; i++ {
		audits.put(recordAt(model.AuditLoginFailed, model.CategoryAuthentication, model.SeverityMedium, time.Minute))
	}
	audits.put(recordAt(model.AuditLoginSuccess, model.CategoryAuthentication, model.SeverityLow, time.Minute))
	audits.put(recordAt(model.AuditSecurityAlert, model.CategorySecurity, model.SeverityCritical, time.Minute))

	m := newFeed(audits, users, newMapCache(), service.FeedConfig{}).Metrics(ctx)

	assert.Equal(t, model.FeedLive, m.Status)
	assert.False(t, m.Sample)
	assert.EqualValues(t, 2, m.Counters.TotalUsers)
	assert.EqualValues(t, 1, m.Counters.VerifiedUsers)
	assert.EqualValues(t, 1, m.Counters.AdminUsers)
	assert.EqualValues(t, 3, m.Counters.FailedLogins)
	assert.EqualValues(t, 1, m.Counters.SuccessfulLogins)
	assert.EqualValues(t, 1, m.Counters.CriticalEvents)
	assert.GreaterOrEqual(t, m.OverallScore, 0)
	assert.LessOrEqual(t, m.OverallScore, 100)
}

func TestFeed_MetricsUnavailable(t *testing.T) {
	users := newMemUserRepo()
	users.err = errStoreDown
	m := newFeed(newMemAuditRepo(), users, newMapCache(), service.FeedConfig{}).Metrics(context.Background())
	assert.Equal(t, model.FeedUnavailable, m.Status)
	assert.True(t, m.Sample)
	assert.Positive(t, m.OverallScore)
}

func TestFeed_AuditSurfacesStoreErrors(t *testing.T) {
	audits := newMemAuditRepo()
	audits.put(recordAt(model.AuditLoginFailed, model.CategoryAuthentication, model.SeverityMedium, time.Minute))
	feed := newFeed(audits, newMemUserRepo(), newMapCache(), service.FeedConfig{})

	res, err := feed.Audit(context.Background(), outbound.AuditFilter{}, outbound.PageRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.TotalCount)
	assert.Equal(t, 1, res.Page)

	audits.listErr = errStoreDown
	_, err = feed.Audit(context.Background(), outbound.AuditFilter{}, outbound.PageRequest{})
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
}

func TestComputeMetrics(t *testing.T) {
	perfect := service.ComputeMetrics(model.MetricCounters{TotalUsers: 10, VerifiedUsers: 10})
	assert.Equal(t, 100, perfect.OverallScore)
	assert.Equal(t, 100, perfect.Scores.Authentication)

	under := service.ComputeMetrics(model.MetricCounters{
		TotalUsers: 10, VerifiedUsers: 5, AdminUsers: 5,
		FailedLogins: 100, UnauthorizedAccess: 100, PrivilegeChanges: 100,
		DataExports: 100, HighDataEvents: 100, CriticalEvents: 100,
		CSPViolations: 100, SuspiciousActivity: 100,
	})
	s := under.Scores
	for _, v := range []int{s.Authentication, s.Authorization, s.AccessControl, s.DataProtection, s.ThreatMonitoring, under.OverallScore} {
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 50)
	}
}
