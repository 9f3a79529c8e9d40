package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"planscore/internal/auth"
	"planscore/internal/clock"
	"planscore/internal/opt"
	"planscore/internal/plan"
	"planscore/internal/scoring"
	"planscore/internal/store"
)

// Problem represents an RFC7807 problem details response body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// writeError maps domain errors onto problem responses. Malformed input is a
// 400; well-formed input the scorer cannot use is a 422.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		fe *clock.ConfigFormatError
		ke *scoring.ConfigKeyError
	)
	switch {
	case errors.As(err, &fe), errors.Is(err, scoring.ErrInvalidConfig), errors.Is(err, opt.ErrInvalidOptions):
		writeProblem(w, http.StatusBadRequest, "Invalid input", err.Error(), r.URL.Path)
	case errors.As(err, &ke):
		writeProblem(w, http.StatusUnprocessableEntity, "Scoring config incomplete", err.Error(), r.URL.Path)
	case errors.Is(err, plan.ErrInvariantViolation):
		writeProblem(w, http.StatusUnprocessableEntity, "Invalid plan", err.Error(), r.URL.Path)
	case errors.Is(err, scoring.ErrNotImplemented):
		writeProblem(w, http.StatusNotImplemented, "Not implemented", err.Error(), r.URL.Path)
	case errors.Is(err, store.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not found", err.Error(), r.URL.Path)
	case errors.Is(err, auth.ErrUnauthorized):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", err.Error(), r.URL.Path)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeProblem(w, http.StatusServiceUnavailable, "Request cancelled", err.Error(), r.URL.Path)
	default:
		writeProblem(w, http.StatusInternalServerError, "Internal error", err.Error(), r.URL.Path)
	}
}
