// Package calendar_tools provides the MCP tools that inspect Google Calendar
// itself, so an assistant can find the calendar IDs availsync needs.
package calendar_tools
