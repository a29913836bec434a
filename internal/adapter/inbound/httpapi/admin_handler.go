package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/medme/secwatch/internal/adapter/inbound/httpapi/middleware"
	"github.com/medme/secwatch/internal/domain/model"
	"github.com/medme/secwatch/internal/domain/port/inbound"
	"github.com/medme/secwatch/internal/domain/port/outbound"
)

const feedStatusHeader = "X-Feed-Status"

// feedParams reads window and limit. Zero values defer to the feed defaults.
func feedParams(r *http.Request) (time.Duration, int, error) {
	q := r.URL.Query()
	var (
		window time.Duration
		limit  int
		err    error
	)
	if s := q.Get("window"); s != "" {
		window, err = time.ParseDuration(s)
		if err != nil || window <= 0 {
			return 0, 0, model.NewValidationError("window", "must be a positive duration such as 24h")
		}
	}
	if s := q.Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit <= 0 {
			return 0, 0, model.NewValidationError("limit", "must be a positive integer")
		}
	}
	return window, limit, nil
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	window, limit, err := feedParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	res := h.feed.Events(r.Context(), window, limit)
	w.Header().Set(feedStatusHeader, string(res.Status))
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	window, limit, err := feedParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	res := h.feed.Alerts(r.Context(), window, limit)
	w.Header().Set(feedStatusHeader, string(res.Status))
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) getMetrics(w http.ResponseWriter, r *http.Request) {
	m := h.feed.Metrics(r.Context())
	w.Header().Set(feedStatusHeader, string(m.Status))
	writeJSON(w, http.StatusOK, m)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseTime(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, model.NewValidationError(field, "must be an RFC 3339 timestamp")
	}
	return &t, nil
}

func auditQuery(r *http.Request) (outbound.AuditFilter, outbound.PageRequest, error) {
	q := r.URL.Query()
	var f outbound.AuditFilter

	for _, s := range splitList(q.Get("action")) {
		a := model.AuditAction(strings.ToUpper(s))
		if !a.Valid() {
			return f, outbound.PageRequest{}, model.NewValidationError("action", "unknown audit action %q", s)
		}
		f.Actions = append(f.Actions, a)
	}
	for _, s := range splitList(q.Get("category")) {
		c := model.AuditCategory(strings.ToUpper(s))
		if !c.Valid() {
			return f, outbound.PageRequest{}, model.NewValidationError("category", "unknown audit category %q", s)
		}
		f.Categories = append(f.Categories, c)
	}
	for _, s := range splitList(q.Get("severity")) {
		sev := model.Severity(strings.ToUpper(s))
		if !sev.Valid() {
			return f, outbound.PageRequest{}, model.NewValidationError("severity", "unknown severity %q", s)
		}
		f.Severities = append(f.Severities, sev)
	}
	f.ActorID = q.Get("actor")

	var err error
	if f.Since, err = parseTime("since", q.Get("since")); err != nil {
		return f, outbound.PageRequest{}, err
	}
	if f.Until, err = parseTime("until", q.Get("until")); err != nil {
		return f, outbound.PageRequest{}, err
	}

	var page outbound.PageRequest
	if s := q.Get("page"); s != "" {
		if page.Page, err = strconv.Atoi(s); err != nil || page.Page < 1 {
			return f, page, model.NewValidationError("page", "must be a positive integer")
		}
	}
	if s := q.Get("size"); s != "" {
		if page.Size, err = strconv.Atoi(s); err != nil || page.Size < 1 {
			return f, page, model.NewValidationError("size", "must be a positive integer")
		}
	}
	return f, page, nil
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	filter, page, err := auditQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.feed.Audit(r.Context(), filter, page)
	if err != nil {
		h.logger.Warn("audit query failed", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type alertActionBody struct {
	Action          string `json:"action"`
	ExpectedVersion *int64 `json:"expectedVersion,omitempty"`
}

func (h *Handler) patchAlert(w http.ResponseWriter, r *http.Request) {
	var body alertActionBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	action, err := model.ParseAlertAction(body.Action)
	if err != nil {
		writeError(w, err)
		return
	}
	alert, err := h.lifecycle.ApplyAlertAction(r.Context(), middleware.ActorFrom(r.Context()), inbound.AlertActionRequest{
		AlertID:         mux.Vars(r)["id"],
		Action:          action,
		ExpectedVersion: body.ExpectedVersion,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}
