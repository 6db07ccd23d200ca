package calendar_tools

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gcal "google.golang.org/api/calendar/v3"

	"github.com/teemow/availsync/internal/calendar"
	"github.com/teemow/availsync/internal/calendar/calendartest"
	"github.com/teemow/availsync/internal/config"
	"github.com/teemow/availsync/internal/server"
)

func newTestServerContext(t *testing.T, fake *calendartest.Server) *server.ServerContext {
	t.Helper()
	cfg := config.Default()
	cfg.TargetCalendar = "busy@group.calendar.google.com"

	sc, err := server.NewServerContext(context.Background(), cfg,
		func(_ context.Context, account string) (server.CalendarClient, error) {
			return calendar.NewClientWithService(fake.Service(t), account), nil
		})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func callTool(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestHandleListCalendars(t *testing.T) {
	fake := calendartest.NewServer(t)
	fake.AddCalendar(&gcal.CalendarListEntry{Id: "me@example.com", Summary: "Me", AccessRole: "owner", Primary: true, TimeZone: "Europe/Berlin"})
	fake.AddCalendar(&gcal.CalendarListEntry{Id: "busy@group.calendar.google.com", Summary: "Availability", AccessRole: "writer"})
	fake.AddCalendar(&gcal.CalendarListEntry{Id: "holidays", Summary: "Holidays", AccessRole: "reader"})

	sc := newTestServerContext(t, fake)

	result, err := handleListCalendars(context.Background(), callTool(nil), sc)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "Found 3 calendar(s)")
	assert.Contains(t, text, "ID: me@example.com")
	assert.Contains(t, text, "[PRIMARY]")
	assert.Contains(t, text, "[TARGET]")
	assert.Contains(t, text, "[READ-ONLY]")
	assert.Contains(t, text, "Time Zone: Europe/Berlin")
}

func TestHandleListCalendars_InvalidAccount(t *testing.T) {
	sc := newTestServerContext(t, calendartest.NewServer(t))

	result, err := handleListCalendars(context.Background(), callTool(map[string]interface{}{"account": "../x"}), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleListCalendars_APIError(t *testing.T) {
	fake := calendartest.NewServer(t)
	fake.FailNext("GET", 404)
	sc := newTestServerContext(t, fake)

	result, err := handleListCalendars(context.Background(), callTool(nil), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Failed to list calendars")
}

func TestRegisterCalendarTools(t *testing.T) {
	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(true))
	sc := newTestServerContext(t, calendartest.NewServer(t))

	require.NoError(t, RegisterCalendarTools(s, sc))
	assert.Contains(t, s.ListTools(), "calendar_list_calendars")
}
