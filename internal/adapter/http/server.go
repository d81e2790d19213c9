package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/grib-ensemble-inventory/internal/domain"
	"github.com/couchcryptid/grib-ensemble-inventory/internal/observability"
)

// maxDescribeBody bounds POST /describe request bodies.
const maxDescribeBody = 64 << 10

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes health, readiness, metrics, and on-demand label decoding.
type Server struct {
	httpServer *http.Server
	decoder    *domain.Decoder
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// POST /describe routes. Records decoded through /describe count toward the
// same label metrics as the pipeline.
func NewServer(addr string, ready ReadinessChecker, decoder *domain.Decoder, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		decoder: decoder,
		metrics: metrics,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /describe", s.handleDescribe)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleDescribe decodes a single GRIB record document and returns its
// inventory line.
func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	var rec domain.GribRecord
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDescribeBody))
	if err := dec.Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid record: " + err.Error()})
		return
	}
	if rec.Parameter == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid record: missing parameter"})
		return
	}

	line, desc := domain.BuildInventoryLine(s.decoder, rec)
	s.metrics.ObserveDescription(rec.Ensemble(), desc)
	if desc.Corrected {
		s.logger.Debug("ensemble type corrected", "id", line.ID, "ensemble_type", desc.EnsembleType)
	}
	writeJSON(w, http.StatusOK, line)
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
