// Package cmd implements the command-line interface for availsync.
//
// This package provides the following commands:
//   - sync: Mirror the busy time of the source calendar into the availability calendar
//   - clear: Delete events from the availability calendar
//   - auth: Authorize availsync with a Google account
//   - calendars: List the calendars of the account
//   - history: Show recorded sync runs
//   - config: Create or show the configuration file
//   - serve: Sync periodically and expose health and metrics endpoints
//   - mcp: Start the MCP server on stdio
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// The sync command is the default command when no subcommand is specified.
package cmd
