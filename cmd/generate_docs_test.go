package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCategoryFromToolName(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{name: "availability_sync", expected: "Availability Tools"},
		{name: "availability_history", expected: "Availability Tools"},
		{name: "calendar_list_calendars", expected: "Google Calendar Tools"},
		{name: "gmail_list_threads", expected: "Other"},
		{name: "", expected: "Other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, getCategoryFromToolName(tt.name))
		})
	}
}

func TestGenerateToolsMarkdown(t *testing.T) {
	tools := []mcp.Tool{
		mcp.NewTool("calendar_list_calendars",
			mcp.WithDescription("List calendars"),
			mcp.WithString("account", mcp.Description("Account name")),
		),
		mcp.NewTool("availability_sync",
			mcp.WithDescription("Sync busy time"),
			mcp.WithNumber("days", mcp.Required()),
		),
	}

	markdown := generateToolsMarkdown(tools)

	assert.Contains(t, markdown, "# MCP Tools Reference")
	assert.Contains(t, markdown, "- [Availability Tools](#availability-tools)")
	assert.Contains(t, markdown, "- [Google Calendar Tools](#google-calendar-tools)")
	assert.Contains(t, markdown, "### availability_sync")
	assert.Contains(t, markdown, "- `days` (required): number parameter")
	assert.Contains(t, markdown, "- `account` (optional): Account name")

	// Categories are sorted
	assert.Less(t, strings.Index(markdown, "## Availability Tools"), strings.Index(markdown, "## Google Calendar Tools"))
}

func TestRunGenerateDocs(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, runGenerateDocs(&stdout, &stderr, ""))

	out := stdout.String()
	for _, name := range []string{"availability_sync", "availability_clear", "availability_history", "calendar_list_calendars"} {
		assert.Contains(t, out, "### "+name)
	}
	assert.Empty(t, stderr.String())
}

func TestRunGenerateDocs_OutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tools.md")

	var stdout, stderr bytes.Buffer
	require.NoError(t, runGenerateDocs(&stdout, &stderr, path))

	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "### availability_sync")
}

func TestGenerateToolMarkdown_EnumAndNoArgs(t *testing.T) {
	withEnum := mcp.NewTool("availability_sync",
		mcp.WithString("mode",
			mcp.Description("Sync mode."),
			mcp.Enum("replace", "reconcile"),
		),
	)
	assert.Contains(t, generateToolMarkdown(withEnum), "- `mode` (optional): Sync mode. One of: `replace`, `reconcile`.")

	noArgs := mcp.NewTool("availability_history")
	assert.Contains(t, generateToolMarkdown(noArgs), "*No arguments.*")
}
