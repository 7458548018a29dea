package healthcheck

import (
	"context"
	"net/http"
	"time"

	"gitlab.com/aqarsync/api/contact-identity-service/pkg/utils"
	"go.uber.org/zap"
)

// readyProbeTimeout bounds how long the readiness handler waits on its
// registered probes before answering.
const readyProbeTimeout = 2 * time.Second

// Probe checks one dependency the service cannot run without.
type Probe func(ctx context.Context) error

type namedProbe struct {
	name  string
	check Probe
}

// Server represents a health check HTTP server
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux // Expose mux for adding handlers
	logger     *zap.Logger
	probes     []namedProbe
}

// HealthResponse is the response structure for health check endpoints
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// NewServer creates a new health check server
func NewServer(port string, logger *zap.Logger) *Server {
	mux := http.NewServeMux()

	server := &Server{
		httpServer: &http.Server{
			Addr:    ":" + port,
			Handler: mux,
		},
		mux:    mux, // Store the mux
		logger: logger,
	}

	// Register default health check endpoints
	mux.HandleFunc("/health", server.handleHealth)
	mux.HandleFunc("/ready", server.handleReady)

	return server
}

// RegisterReadinessProbe adds a named dependency check to the /ready
// endpoint. Must be called before Start.
func (s *Server) RegisterReadinessProbe(name string, probe Probe) {
	s.logger.Info("Registering readiness probe", zap.String("probe", name))
	s.probes = append(s.probes, namedProbe{name: name, check: probe})
}

// RegisterMetricsHandler adds the /metrics endpoint handler.
// Should only be called if metrics are enabled.
func (s *Server) RegisterMetricsHandler(handler http.Handler) {
	s.logger.Info("Registering /metrics endpoint")
	s.mux.Handle("/metrics", handler)
}

// RegisterDedupReportHandler exposes the most recent deduplication report at
// the given path. fetch returns the report JSON for a company, or false when
// no report is retained for it.
func (s *Server) RegisterDedupReportHandler(path string, fetch func(companyID string) ([]byte, bool)) {
	s.logger.Info("Registering dedup report endpoint", zap.String("path", path))
	s.mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		companyID := r.URL.Query().Get("company_id")
		if companyID == "" {
			utils.WriteJSONResponse(w, http.StatusBadRequest, HealthResponse{
				Status:  "ERROR",
				Details: map[string]string{"error": "company_id query parameter is required"},
			})
			return
		}
		data, ok := fetch(companyID)
		if !ok {
			utils.WriteJSONResponse(w, http.StatusNotFound, HealthResponse{
				Status:  "NOT_FOUND",
				Details: map[string]string{"error": "no deduplication report retained for company " + companyID},
			})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(data); err != nil {
			s.logger.Warn("Failed to write dedup report response", zap.Error(err))
		}
	})
}

// Start begins the HTTP server
func (s *Server) Start() {
	go func() {
		s.logger.Info("Starting health check server", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Health check server error", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping health check server")
	return s.httpServer.Shutdown(ctx)
}

// handleHealth handles the /health endpoint for liveness probes
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "UP",
		Version: "1.0.0",
	}

	utils.WriteJSONResponse(w, http.StatusOK, resp)
}

// handleReady handles the /ready endpoint for readiness probes. Every
// registered probe must pass; any failure answers 503 with the failing
// dependencies named in the details.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyProbeTimeout)
	defer cancel()

	status := http.StatusOK
	resp := HealthResponse{
		Status: "READY",
		Details: map[string]string{
			"timestamp": utils.FormatISO8601(utils.Now()),
		},
	}
	for _, p := range s.probes {
		if err := p.check(ctx); err != nil {
			s.logger.Warn("Readiness probe failed", zap.String("probe", p.name), zap.Error(err))
			resp.Status = "NOT_READY"
			resp.Details[p.name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Details[p.name] = "ok"
	}

	utils.WriteJSONResponse(w, status, resp)
}
