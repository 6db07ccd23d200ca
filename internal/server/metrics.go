package server

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teemow/availsync/internal/instrumentation"
)

// DefaultMetricsAddr is the default address for the metrics server.
const DefaultMetricsAddr = ":9090"

// MetricsServerConfig holds configuration for the metrics server.
type MetricsServerConfig struct {
	// Addr is the address to bind the metrics server to (e.g., ":9090").
	Addr string

	// InstrumentationProvider provides the Prometheus metrics handler.
	InstrumentationProvider *instrumentation.Provider
}

// MetricsServer serves Prometheus metrics on a dedicated port, away from the
// health endpoints.
type MetricsServer struct {
	*httpServer
}

// NewMetricsServer creates a new metrics server. The provider must be enabled
// and export through Prometheus.
func NewMetricsServer(config MetricsServerConfig) (*MetricsServer, error) {
	if config.Addr == "" {
		config.Addr = DefaultMetricsAddr
	}

	provider := config.InstrumentationProvider
	if provider == nil {
		return nil, fmt.Errorf("instrumentation provider is required for metrics server")
	}
	if !provider.Enabled() {
		return nil, fmt.Errorf("instrumentation provider is not enabled")
	}
	if !provider.HasPrometheus() {
		return nil, fmt.Errorf("metrics exporter is not prometheus")
	}

	mux := http.NewServeMux()
	// The OpenTelemetry prometheus exporter registers on the default registry,
	// which promhttp.Handler exposes.
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &MetricsServer{httpServer: newHTTPServer("metrics", config.Addr, mux)}, nil
}

// DefaultHealthAddr is the default address for the health server.
const DefaultHealthAddr = ":8080"

// HealthServer serves the HealthChecker endpoints.
type HealthServer struct {
	*httpServer
}

// NewHealthServer creates a health server on addr. metrics may be nil.
func NewHealthServer(addr string, checker *HealthChecker, metrics *instrumentation.Metrics) *HealthServer {
	if addr == "" {
		addr = DefaultHealthAddr
	}
	return &HealthServer{httpServer: newHTTPServer("health", addr, checker.Handler(metrics))}
}
