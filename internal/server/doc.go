// Package server holds the long-running parts of `availsync serve`.
//
// # Key Components
//
// Runner executes one sync immediately and then one per interval. Trigger
// requests an extra run; runs never overlap.
//
// HealthChecker exposes /healthz, /readyz and /healthz/detailed. The server
// becomes ready after the first successful sync, and the detailed endpoint
// reports the outcome of the most recent run.
//
// MetricsServer serves Prometheus metrics on a dedicated port.
package server
