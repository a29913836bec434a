// Package httpapi exposes the report endpoints, the identity webhook and the admin
// security feed over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/medme/secwatch/internal/adapter/inbound/httpapi/middleware"
	"github.com/medme/secwatch/internal/adapter/inbound/httpapi/parser"
	"github.com/medme/secwatch/internal/domain/model"
	"github.com/medme/secwatch/internal/domain/port/inbound"
	"github.com/medme/secwatch/pkg/version"
)

// Handler holds the inbound ports served by the API.
type Handler struct {
	reports   inbound.ReportPort
	feed      inbound.FeedPort
	lifecycle inbound.LifecyclePort
	parsers   *parser.Registry
	logger    *slog.Logger
}

func NewHandler(reports inbound.ReportPort, feed inbound.FeedPort, lifecycle inbound.LifecyclePort, parsers *parser.Registry, logger *slog.Logger) *Handler {
	if parsers == nil {
		parsers = parser.NewDefaultRegistry()
	}
	return &Handler{
		reports:   reports,
		feed:      feed,
		lifecycle: lifecycle,
		parsers:   parsers,
		logger:    logger,
	}
}

// RouterConfig controls the middleware stack.
type RouterConfig struct {
	// IdentitySecret enables POST /webhooks/identity when set.
	IdentitySecret     string
	RateLimitPerMinute int
	RateLimitBurst     int
	TrustProxy         bool
	AllowedOrigins     []string
	MaxBodyBytes       int64
}

// NewRouter builds the API handler. Route layout:
//
//	GET   /health                           - liveness and version
//	POST  /api/security/alerts              - generic security alert (rate limited)
//	POST  /api/security/csp-report          - CSP violation reports (rate limited)
//	POST  /api/security/suspicious-activity - suspicious activity beacon (rate limited)
//	POST  /webhooks/identity                - identity provider events (HMAC signed)
//	GET   /api/admin/security/events        - security:read
//	GET   /api/admin/security/alerts        - security:read
//	GET   /api/admin/security/metrics       - security:read
//	GET   /api/admin/security/audit         - security:read
//	PATCH /api/admin/security/alerts/{id}   - security:manage
//
// ctx bounds the rate limiter's background eviction.
func NewRouter(ctx context.Context, h *Handler, verifier *middleware.TokenVerifier, cfg RouterConfig, logger *slog.Logger) http.Handler {
	router := mux.NewRouter()
	router.Use(middleware.Instrument)

	router.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	limit := middleware.NewRateLimiter(ctx, max(cfg.RateLimitPerMinute, 1), cfg.RateLimitBurst, cfg.TrustProxy)
	reports := router.PathPrefix("/api/security").Subrouter()
	reports.Use(limit)
	reports.HandleFunc("/alerts", h.reportAlert).Methods(http.MethodPost)
	reports.HandleFunc("/csp-report", h.reportCSP).Methods(http.MethodPost)
	reports.HandleFunc("/suspicious-activity", h.reportSuspicious).Methods(http.MethodPost)

	if cfg.IdentitySecret != "" {
		router.Handle("/webhooks/identity",
			middleware.HMACAuth(cfg.IdentitySecret)(http.HandlerFunc(h.identityWebhook)),
		).Methods(http.MethodPost)
	}

	admin := router.PathPrefix("/api/admin/security").Subrouter()
	admin.Use(middleware.RequireCapability(model.CapSecurityRead))
	admin.HandleFunc("/events", h.listEvents).Methods(http.MethodGet)
	admin.HandleFunc("/alerts", h.listAlerts).Methods(http.MethodGet)
	admin.HandleFunc("/metrics", h.getMetrics).Methods(http.MethodGet)
	admin.HandleFunc("/audit", h.listAudit).Methods(http.MethodGet)
	admin.Handle("/alerts/{id}",
		middleware.RequireCapability(model.CapSecurityManage)(http.HandlerFunc(h.patchAlert)),
	).Methods(http.MethodPatch)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, feedStatusHeader},
		AllowCredentials: true,
	})

	// Outermost first: Recoverer -> SecurityHeaders -> CORS -> BodyReader -> Identify -> Logging -> router
	var handler http.Handler = router
	handler = middleware.NewLoggingMiddleware(logger)(handler)
	handler = middleware.Identify(verifier, cfg.TrustProxy)(handler)
	handler = middleware.BodyReader(cfg.MaxBodyBytes)(handler)
	handler = c.Handler(handler)
	handler = middleware.SecurityHeaders(handler)
	handler = middleware.Recoverer(logger)(handler)
	return handler
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	body := version.Info()
	body["status"] = "ok"
	writeJSON(w, http.StatusOK, body)
}
