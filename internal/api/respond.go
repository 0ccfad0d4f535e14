package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sethnicholsaz/asset-manager-sub001/internal/engine"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/herd"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/ledger"
	"github.com/sethnicholsaz/asset-manager-sub001/internal/settings"
)

type errorResponse struct {
	Error string `json:"error"`
	Rule  string `json:"rule,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeEngineError maps engine and repository errors onto HTTP statuses:
// not-found to 404, invariant violations to 409, validation to 400,
// everything else to 500.
func writeEngineError(w http.ResponseWriter, err error) {
	var ie *engine.InvariantError
	switch {
	case errors.As(err, &ie):
		writeJSON(w, http.StatusConflict, errorResponse{Error: ie.Detail, Rule: ie.Rule})
	case errors.Is(err, herd.ErrCowNotFound),
		errors.Is(err, herd.ErrDispositionNotFound),
		errors.Is(err, ledger.ErrEntryNotFound),
		errors.Is(err, settings.ErrSettingsNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
