package apierror_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/medme/secwatch/internal/domain/model"
	"github.com/medme/secwatch/pkg/apierror"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", model.NewValidationError("type", "required"), http.StatusBadRequest},
		{"wrapped not found", fmt.Errorf("alert x: %w", model.ErrNotFound), http.StatusNotFound},
		{"conflict", model.ErrConflict, http.StatusConflict},
		{"forbidden", model.ErrForbidden, http.StatusForbidden},
		{"store", fmt.Errorf("%w: insert: %w", model.ErrStoreUnavailable, errors.New("disk full")), http.StatusServiceUnavailable},
		{"api error passthrough", apierror.Unauthorized("no token"), http.StatusUnauthorized},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apierror.FromError(tt.err).Code; got != tt.code {
				t.Errorf("code = %d, want %d", got, tt.code)
			}
		})
	}
}

func TestWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	apierror.Write(rec, apierror.FromError(model.ErrStoreUnavailable))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	var body apierror.Error
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Detail == "" {
		t.Error("expected an explanatory detail for store failures")
	}
}
