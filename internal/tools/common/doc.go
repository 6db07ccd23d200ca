// Package common provides helpers shared by the MCP tool packages:
// instrumentation of tool handlers and argument parsing.
package common
