package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/nvandessel/osteon/internal/biology"
	"github.com/nvandessel/osteon/internal/ratelimit"
	"github.com/nvandessel/osteon/internal/store"
)

var errNoStore = errors.New("no run store configured")

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError translates domain errors into a JSON error envelope. Internal
// errors carry no description.
func writeError(w http.ResponseWriter, err error) {
	var (
		br *badRequest
		le *ratelimit.LimitError
	)
	switch {
	case errors.As(err, &le):
		if le.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(le.RetryAfter.Seconds()))))
		}
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate_limited", Description: err.Error()})
	case errors.As(err, &br),
		errors.Is(err, ratelimit.ErrOverBudget),
		errors.Is(err, biology.ErrInvalidParameter),
		errors.Is(err, biology.ErrInvalidState),
		errors.Is(err, biology.ErrInvalidInteraction):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Description: err.Error()})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not_found", Description: err.Error()})
	case errors.Is(err, biology.ErrSimulation):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "simulation_failed", Description: err.Error()})
	case errors.Is(err, errNoStore):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "unavailable", Description: err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "canceled"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal_error"})
	}
}
