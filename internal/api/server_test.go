package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkamau/groundwork/internal/failure"
	"github.com/mkamau/groundwork/internal/health"
	"github.com/mkamau/groundwork/internal/observability"
)

func newTestServer(checker *health.Checker) *Server {
	return NewServer(ServerConfig{
		Normalizer: failure.NewNormalizer(slog.New(slog.NewTextHandler(io.Discard, nil))),
		Checker:    checker,
		Metrics:    observability.NewMetrics("groundwork_test"),
	})
}

func TestServer_Health(t *testing.T) {
	checker := health.NewChecker().
		Add("postgres", func(context.Context) error { return nil })

	rec := httptest.NewRecorder()
	newTestServer(checker).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var report health.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, health.StatusOK, report.Status)
	assert.Equal(t, health.StatusOK, report.Checks["postgres"])
}

func TestServer_HealthDegraded(t *testing.T) {
	checker := health.NewChecker().
		Add("redis", func(context.Context) error { return errors.New("connection refused") })

	rec := httptest.NewRecorder()
	newTestServer(checker).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var report health.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, health.StatusDegraded, report.Status)
}

func TestServer_HealthWithoutChecker(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	s := newTestServer(nil)

	// Generate one request so the counters exist.
	warm := httptest.NewRecorder()
	s.Handler().ServeHTTP(warm, httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "groundwork_test_http_requests_total")
}

func TestServer_PanicInsideStackIsEnveloped(t *testing.T) {
	s := newTestServer(nil)
	// Mount a panicking route through the server's own adapter.
	s.router.Get("/explode", s.Errors().Wrap(func(http.ResponseWriter, *http.Request) error {
		panic("kaboom")
	}))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/explode", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
	assert.NotContains(t, rec.Body.String(), "kaboom")
}
