package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/medme/secwatch/pkg/apierror"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	apierror.Write(w, apierror.FromError(err))
}

// decodeJSON decodes a single JSON object from the request body.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apierror.BadRequest("request body is empty")
		}
		return apierror.WithDetail(http.StatusBadRequest, "malformed JSON body", err.Error())
	}
	return nil
}
