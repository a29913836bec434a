package httpapi

import (
	"errors"
	"net/http"

	"github.com/medme/secwatch/internal/adapter/inbound/httpapi/middleware"
	"github.com/medme/secwatch/internal/adapter/inbound/httpapi/parser"
	"github.com/medme/secwatch/internal/domain/model"
	"github.com/medme/secwatch/pkg/apierror"
)

func outcomeStatus(o model.ReportOutcome) int {
	if o.RecordID != "" {
		return http.StatusCreated
	}
	return http.StatusOK
}

func (h *Handler) reportAlert(w http.ResponseWriter, r *http.Request) {
	var report model.SecurityAlertReport
	if err := decodeJSON(r, &report); err != nil {
		writeError(w, err)
		return
	}
	out, err := h.reports.ReportSecurityAlert(r.Context(), middleware.ActorFrom(r.Context()), report)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, outcomeStatus(out), out)
}

func (h *Handler) reportSuspicious(w http.ResponseWriter, r *http.Request) {
	var activity model.SuspiciousActivity
	if err := decodeJSON(r, &activity); err != nil {
		writeError(w, err)
		return
	}
	out, err := h.reports.ReportSuspiciousActivity(r.Context(), middleware.ActorFrom(r.Context()), activity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, outcomeStatus(out), out)
}

// reportCSP accepts both browser report formats. A single violation is answered with
// its outcome; a Reporting API batch with {"outcomes": [...]}.
func (h *Handler) reportCSP(w http.ResponseWriter, r *http.Request) {
	p, err := h.parsers.Resolve(r)
	if errors.Is(err, parser.ErrUnsupportedFormat) {
		apierror.Write(w, apierror.New(http.StatusUnsupportedMediaType, "unsupported CSP report content type"))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	body, _ := middleware.RawBody(r.Context())
	violations, err := p.Parse(body)
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			writeError(w, err)
			return
		}
		apierror.Write(w, apierror.WithDetail(http.StatusBadRequest, "malformed CSP report", err.Error()))
		return
	}
	if len(violations) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	actor := middleware.ActorFrom(r.Context())
	if p.Format() == parser.FormatLegacy && len(violations) == 1 {
		out, err := h.reports.ReportCSPViolation(r.Context(), actor, violations[0])
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, outcomeStatus(out), out)
		return
	}

	entries, err := h.reportCSPBatch(r, actor, violations)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"outcomes": entries})
}

// batchEntry is one element of a batch response: either an outcome or the reason
// the entry was rejected.
type batchEntry struct {
	*model.ReportOutcome
	Error string `json:"error,omitempty"`
}

// reportCSPBatch classifies every entry independently so one bad entry never
// discards or duplicates its neighbours. Browsers do not retry a 200, so the batch
// fails as a whole only when the store is down before anything was recorded.
func (h *Handler) reportCSPBatch(r *http.Request, actor model.Actor, violations []model.CSPViolation) ([]batchEntry, error) {
	entries := make([]batchEntry, len(violations))
	recorded := 0
	for i, v := range violations {
		out, err := h.reports.ReportCSPViolation(r.Context(), actor, v)
		switch {
		case err == nil:
			entries[i] = batchEntry{ReportOutcome: &out}
			if out.RecordID != "" {
				recorded++
			}
		case errors.Is(err, model.ErrStoreUnavailable) && recorded == 0:
			return nil, err
		default:
			entries[i] = batchEntry{Error: apierror.FromError(err).Error()}
		}
	}
	return entries, nil
}

func (h *Handler) identityWebhook(w http.ResponseWriter, r *http.Request) {
	var ev model.IdentityEvent
	if err := decodeJSON(r, &ev); err != nil {
		writeError(w, err)
		return
	}
	out, err := h.reports.ReportIdentityEvent(r.Context(), ev)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, outcomeStatus(out), out)
}
