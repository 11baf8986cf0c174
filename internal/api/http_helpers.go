package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/justkalesh/foodhunt101-sub000/internal/metrics"
	"github.com/justkalesh/foodhunt101-sub000/internal/service"
)

// errForbidden is the embedding layer's authorization failure. The
// service itself never knows who is calling; creator-only and
// requester-only rules are enforced here against the token identity.
var errForbidden = errors.New("you do not have permission to do this")

func decodeJSON(r *http.Request, dest any) error {
	if r.Body == nil {
		return errors.New("request body required")
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, errorStatus(err), map[string]any{"error": err.Error()})
}

// errorStatus maps the service's failure taxonomy onto HTTP statuses.
func errorStatus(err error) int {
	var (
		validation *service.ValidationError
		conflict   *service.ConflictError
		rateLimit  *service.RateLimitError
		transient  *service.TransientError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &conflict),
		errors.Is(err, service.ErrAlreadyJoined),
		errors.Is(err, service.ErrDuplicateRequest),
		errors.Is(err, service.ErrRequestResolved):
		return http.StatusConflict
	case errors.As(err, &rateLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &transient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// outcome labels an operation result for metrics.
func outcome(err error) string {
	var (
		validation *service.ValidationError
		conflict   *service.ConflictError
		rateLimit  *service.RateLimitError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &validation):
		return "invalid"
	case errors.As(err, &conflict),
		errors.Is(err, service.ErrAlreadyJoined),
		errors.Is(err, service.ErrDuplicateRequest),
		errors.Is(err, service.ErrRequestResolved):
		return "conflict"
	case errors.As(err, &rateLimit):
		return "rate_limited"
	case errors.Is(err, errForbidden):
		return "forbidden"
	case errors.Is(err, service.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// observe records the metrics for one lifecycle operation.
func observe(op string, start time.Time, err error) {
	metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	metrics.Operations.WithLabelValues(op, outcome(err)).Inc()
}
