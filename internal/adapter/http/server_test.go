package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/grib-ensemble-inventory/internal/adapter/http"
	"github.com/couchcryptid/grib-ensemble-inventory/internal/domain"
	"github.com/couchcryptid/grib-ensemble-inventory/internal/observability"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func newTestServer(readyErr error) *httpadapter.Server {
	srv, _ := newTestServerWithMetrics(readyErr)
	return srv
}

func newTestServerWithMetrics(readyErr error) (*httpadapter.Server, *observability.Metrics) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	decoder := domain.NewDecoder(domain.StyleDescriptive, logger)
	metrics := observability.NewMetricsForTesting()
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, decoder, metrics, logger), metrics
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(fmt.Errorf("not ready yet"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestDescribeReturnsInventoryLine(t *testing.T) {
	srv := newTestServer(nil)
	body := `{"record":3,"offset":825610,"ref_time":"2024-04-26T00:00:00Z","parameter":"2T","level":"2 m above ground","forecast":"24 hour fcst","center":98,"pdt":2,"perturbation":0,"ensemble_members":50,"derived_forecast_type":2}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/describe", strings.NewReader(body))

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var line domain.InventoryLine
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &line))
	assert.Equal(t, "low-resolution control ensemble std dev", line.Ensemble)
	assert.Equal(t, "50 ensemble members", line.EnsembleMembers)
	assert.True(t, line.Corrected)
	assert.Equal(t,
		"3:825610:d=2024042600:2T:2 m above ground:24 hour fcst:low-resolution control ensemble std dev:50 ensemble members",
		line.Inventory)
}

func TestDescribeRejectsMalformedJSON(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/describe", strings.NewReader("{not json"))

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid record")
}

func TestDescribeRejectsMissingParameter(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/describe", strings.NewReader(`{"record":1,"center":7}`))

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing parameter")
}

func TestDescribeRequiresPost(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/describe", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDescribeRecordsLabelMetrics(t *testing.T) {
	srv, metrics := newTestServerWithMetrics(nil)
	body := `{"record":3,"ref_time":"2024-04-26T00:00:00Z","parameter":"2T","center":98,"pdt":2,"perturbation":0,"ensemble_members":50,"derived_forecast_type":2}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/describe", strings.NewReader(body))

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.EnsembleCorrections), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Labels.WithLabelValues("ensemble", "recognized")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Labels.WithLabelValues("derived", "recognized")), 0)
}

func TestDescribeRejectedRecordLeavesMetricsUntouched(t *testing.T) {
	srv, metrics := newTestServerWithMetrics(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/describe", strings.NewReader("{not json"))

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.EnsembleCorrections), 0)
}
