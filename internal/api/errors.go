package api

import (
	"encoding/json"
	"net/http"

	"github.com/mkamau/groundwork/internal/failure"
	"github.com/mkamau/groundwork/internal/observability"
)

// HandlerFunc is an http.HandlerFunc that may fail. Returned errors
// are normalized into the standard envelope and written as the JSON
// response body.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// ErrorHandler is the request/response transport adapter around the
// failure normalizer. It consumes envelopes verbatim: the HTTP status
// is the envelope's status, the body is the envelope plus the request
// context fields.
type ErrorHandler struct {
	normalizer *failure.Normalizer
	metrics    *observability.Metrics
}

// NewErrorHandler creates the adapter.
func NewErrorHandler(normalizer *failure.Normalizer, metrics *observability.Metrics) *ErrorHandler {
	return &ErrorHandler{normalizer: normalizer, metrics: metrics}
}

// Wrap adapts a fallible handler to http.HandlerFunc.
func (h *ErrorHandler) Wrap(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			h.Write(w, r, err)
		}
	}
}

// Write normalizes a raised value and serializes the envelope.
func (h *ErrorHandler) Write(w http.ResponseWriter, r *http.Request, raised any) {
	env := h.normalizer.
		Normalize(raised, failure.TransportRequest).
		WithRequest(r.Method, r.URL.Path)

	if h.metrics != nil {
		h.metrics.Failure(failure.TransportRequest.String(), env.StatusCode)
	}

	respondJSON(w, env.StatusCode, env)
}

// Recover is middleware turning panics into normalized 500 envelopes.
// It replaces chi's stock Recoverer so panicking handlers produce the
// same error shape as failing ones.
func (h *ErrorHandler) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.Write(w, r, rec)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
