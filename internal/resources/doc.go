// Package resources provides MCP resources that expose availsync state.
// Resources are read-only data sources that MCP clients can fetch: the
// effective configuration and the most recent sync run.
package resources
