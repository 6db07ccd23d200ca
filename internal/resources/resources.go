package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/availsync/internal/server"
)

const (
	// ConfigURI serves the effective sync configuration.
	ConfigURI = "availsync://config"
	// LastRunURI serves the most recent recorded run.
	LastRunURI = "availsync://runs/latest"
)

// RegisterResources registers the availsync resources with the MCP server.
func RegisterResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	configResource := mcp.NewResource(
		ConfigURI,
		"Effective Configuration",
		mcp.WithResourceDescription("The configuration availsync syncs with, after environment variables and flags"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(configResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleConfig(ctx, request, sc)
	})

	lastRunResource := mcp.NewResource(
		LastRunURI,
		"Last Sync Run",
		mcp.WithResourceDescription("The most recent recorded sync run"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(lastRunResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleLastRun(ctx, request, sc)
	})

	return nil
}

func handleConfig(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	cfg := sc.Config()

	configData := map[string]interface{}{
		"account":          cfg.Account,
		"sourceCalendar":   cfg.SourceCalendar,
		"targetCalendar":   cfg.TargetCalendar,
		"days":             cfg.Days,
		"summary":          cfg.Summary,
		"mode":             cfg.Mode,
		"mergeOverlapping": cfg.MergeOverlapping,
		"skipDeclined":     cfg.SkipDeclined,
		"managedOnly":      cfg.ManagedOnly,
		"interval":         cfg.Interval,
		"historyEnabled":   sc.History() != nil,
		"writeEnabled":     sc.Yolo(),
	}

	return jsonContents(request.Params.URI, configData)
}

func handleLastRun(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	history := sc.History()
	if history == nil {
		return nil, fmt.Errorf("run history is disabled")
	}

	run, err := history.LastRun(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read last run: %w", err)
	}
	if run == nil {
		return jsonContents(request.Params.URI, map[string]interface{}{
			"description": "No runs recorded yet",
		})
	}

	runData := map[string]interface{}{
		"id":           run.ID,
		"startedAt":    run.StartedAt.Format(time.RFC3339),
		"finishedAt":   run.FinishedAt.Format(time.RFC3339),
		"mode":         run.Mode,
		"source":       run.Source,
		"target":       run.Target,
		"windowStart":  run.WindowStart.Format(time.RFC3339),
		"windowEnd":    run.WindowEnd.Format(time.RFC3339),
		"dryRun":       run.DryRun,
		"sourceEvents": run.SourceEvents,
		"busyBlocks":   run.BusyBlocks,
		"created":      run.Created,
		"deleted":      run.Deleted,
		"kept":         run.Kept,
		"succeeded":    run.Succeeded(),
	}
	if run.Error != "" {
		runData["error"] = run.Error
	}

	return jsonContents(request.Params.URI, runData)
}

func jsonContents(uri string, data map[string]interface{}) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
