// Package availability_tools provides the MCP tools that run availsync:
// availability_sync, availability_clear and availability_history.
//
// Unless the server was started with --yolo, sync and clear only report what
// they would change.
package availability_tools
