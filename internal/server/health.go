package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teemow/availsync/internal/availability"
	"github.com/teemow/availsync/internal/instrumentation"
)

// Health status constants for health check responses.
const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
	healthStatusFailing      = "failing"
)

// HealthChecker provides health check endpoints for Kubernetes probes.
type HealthChecker struct {
	// ready is set after the first successful sync
	ready atomic.Bool
	// shuttingDown is set once graceful shutdown begins
	shuttingDown atomic.Bool
	startTime    time.Time

	mu          sync.RWMutex
	runs        int
	failures    int
	lastRun     *RunStatus
	lastSuccess time.Time
}

// RunStatus summarises the most recent run for /healthz/detailed.
type RunStatus struct {
	RunID      string    `json:"run_id,omitempty"`
	Mode       string    `json:"mode,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
	Created    int       `json:"created"`
	Deleted    int       `json:"deleted"`
	Kept       int       `json:"kept"`
	Error      string    `json:"error,omitempty"`
}

// NewHealthChecker creates a new HealthChecker. It is not ready until
// RecordRun sees a successful run.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
	}
}

// SetReady sets the readiness state of the server.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns whether the server is ready to receive traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// SetShuttingDown marks the server as shutting down.
func (h *HealthChecker) SetShuttingDown() {
	h.shuttingDown.Store(true)
}

// RecordRun stores the outcome of a sync. report may be nil when the run
// failed before it started, e.g. on invalid options.
func (h *HealthChecker) RecordRun(report *availability.Report, err error) {
	status := &RunStatus{FinishedAt: time.Now()}
	if report != nil {
		status.RunID = report.RunID
		status.Mode = report.Mode
		status.Created = report.Created
		status.Deleted = report.Deleted
		status.Kept = report.Kept
		if !report.FinishedAt.IsZero() {
			status.FinishedAt = report.FinishedAt
		}
	}
	if err != nil {
		status.Error = err.Error()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.runs++
	h.lastRun = status
	if err != nil {
		h.failures++
		return
	}
	h.lastSuccess = status.FinishedAt
	h.ready.Store(true)
}

// LastRun returns a copy of the most recent run status, or nil.
func (h *HealthChecker) LastRun() *RunStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.lastRun == nil {
		return nil
	}
	s := *h.lastRun
	return &s
}

// HealthResponse represents the JSON response for health endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse provides comprehensive health information.
type DetailedHealthResponse struct {
	Status      string     `json:"status"`
	Uptime      string     `json:"uptime"`
	Runs        int        `json:"runs"`
	Failures    int        `json:"failures"`
	LastSuccess *time.Time `json:"last_success,omitempty"`
	LastRun     *RunStatus `json:"last_run,omitempty"`
}

// LivenessHandler returns an HTTP handler for the /healthz endpoint.
// Liveness probes indicate whether the process should be restarted.
// This should be a simple check that the server process is running.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		response := HealthResponse{
			Status: healthStatusOK,
		}

		_ = json.NewEncoder(w).Encode(response)
	})
}

// ReadinessHandler returns an HTTP handler for the /readyz endpoint.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		checks := make(map[string]string)
		allOk := true

		if !h.ready.Load() {
			checks["sync"] = healthStatusNotReady
			allOk = false
		} else {
			checks["sync"] = healthStatusOK
		}

		if h.shuttingDown.Load() {
			checks["shutdown"] = healthStatusShuttingDown
			allOk = false
		} else {
			checks["shutdown"] = healthStatusOK
		}

		response := HealthResponse{
			Checks: checks,
		}

		if allOk {
			response.Status = healthStatusOK
			w.WriteHeader(http.StatusOK)
		} else {
			response.Status = healthStatusNotReady
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		_ = json.NewEncoder(w).Encode(response)
	})
}

// DetailedHealthHandler returns an HTTP handler for the /healthz/detailed
// endpoint. A server whose last run failed still answers 200 once it has
// been ready, but reports the status "failing".
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		h.mu.RLock()
		response := DetailedHealthResponse{
			Status:   healthStatusOK,
			Uptime:   time.Since(h.startTime).Truncate(time.Second).String(),
			Runs:     h.runs,
			Failures: h.failures,
		}
		if !h.lastSuccess.IsZero() {
			t := h.lastSuccess
			response.LastSuccess = &t
		}
		if h.lastRun != nil {
			s := *h.lastRun
			response.LastRun = &s
		}
		h.mu.RUnlock()

		switch {
		case h.shuttingDown.Load():
			response.Status = healthStatusShuttingDown
			w.WriteHeader(http.StatusServiceUnavailable)
		case !h.ready.Load():
			response.Status = healthStatusNotReady
			w.WriteHeader(http.StatusServiceUnavailable)
		case response.LastRun != nil && response.LastRun.Error != "":
			response.Status = healthStatusFailing
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusOK)
		}

		_ = json.NewEncoder(w).Encode(response)
	})
}

// RegisterHealthEndpoints registers health check endpoints on the given mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}

// Handler returns a mux with the health endpoints. Requests are counted in
// http_requests_total when metrics is non-nil.
func (h *HealthChecker) Handler(metrics *instrumentation.Metrics) http.Handler {
	mux := http.NewServeMux()
	h.RegisterHealthEndpoints(mux)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		mux.ServeHTTP(rec, r)
		metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rec.status)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
