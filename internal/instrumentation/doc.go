// Package instrumentation provides OpenTelemetry instrumentation for availsync.
//
// This package enables observability through:
//   - OpenTelemetry metrics for Google Calendar API calls, sync runs and MCP tools
//   - Distributed tracing for sync runs and API calls
//   - Prometheus metrics export via the /metrics endpoint of `availsync serve`
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// Google API Metrics:
//   - google_api_operations_total: Counter of Google API operations by service, operation, status
//   - google_api_operation_duration_seconds: Histogram of Google API operation durations
//
// Sync Metrics:
//   - sync_runs_total: Counter of sync runs by mode, status and dry_run
//   - sync_events_total: Counter of availability events by action (created, deleted, kept); dry runs are excluded
//   - sync_duration_seconds: Histogram of sync run durations
//
// OAuth Metrics:
//   - oauth_token_refresh_total: Counter of token refresh attempts by result
//
// Server Metrics:
//   - http_requests_total: Counter of health endpoint requests by method, path, and status
//   - mcp_tool_invocations_total / mcp_tool_duration_seconds: MCP tool invocations
//
// # Tracing
//
// Spans are created for:
//   - Sync runs (availability.sync, availability.clear)
//   - Google API calls (google.<service>.<operation>)
//   - MCP tool invocations (tool.<name>)
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: availsync)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, instrumentation.OperationList,
//		instrumentation.StatusSuccess, time.Since(start))
package instrumentation
