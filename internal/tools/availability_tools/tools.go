package availability_tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/availsync/internal/availability"
	"github.com/teemow/availsync/internal/config"
	"github.com/teemow/availsync/internal/server"
	"github.com/teemow/availsync/internal/tools/common"
)

const readOnlyNote = "Note: the server runs read-only, so no changes were made. Restart it with --yolo to apply changes."

// RegisterAvailabilityTools registers the availability tools with the MCP server.
func RegisterAvailabilityTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	syncTool := mcp.NewTool("availability_sync",
		mcp.WithDescription("Mirror the busy time of the source calendar into the availability calendar as opaque placeholder events. Arguments override the configured values."),
		mcp.WithString("account",
			mcp.Description("Account name (default: the configured account)."),
		),
		mcp.WithString("source",
			mcp.Description("Source calendar ID (default: the configured source_calendar)."),
		),
		mcp.WithString("target",
			mcp.Description("Availability calendar ID (default: the configured target_calendar)."),
		),
		mcp.WithNumber("days",
			mcp.Description(fmt.Sprintf("Number of days to sync, starting now (1-%d).", config.MaxDays)),
		),
		mcp.WithString("mode",
			mcp.Description("'replace' deletes and recreates all events, 'reconcile' only applies the difference."),
			mcp.Enum(string(availability.ModeReplace), string(availability.ModeReconcile)),
		),
		mcp.WithBoolean("dryRun",
			mcp.Description("Only report what would change (default: false). Always true on a read-only server."),
		),
	)
	s.AddTool(syncTool, common.InstrumentedToolHandler("availability_sync", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSync(ctx, request, sc)
		}))

	clearTool := mcp.NewTool("availability_clear",
		mcp.WithDescription("Delete availability events from the target calendar. With start and end, every event overlapping that range is deleted, whoever created it."),
		mcp.WithString("account",
			mcp.Description("Account name (default: the configured account)."),
		),
		mcp.WithString("target",
			mcp.Description("Availability calendar ID (default: the configured target_calendar)."),
		),
		mcp.WithNumber("days",
			mcp.Description("Number of days to clear, starting now. Ignored when start and end are set."),
		),
		mcp.WithString("start",
			mcp.Description("Start of the range to clear (RFC 3339 or YYYY-MM-DD)."),
		),
		mcp.WithString("end",
			mcp.Description("End of the range to clear (RFC 3339 or YYYY-MM-DD)."),
		),
		mcp.WithBoolean("managedOnly",
			mcp.Description("Only delete events created by availsync (default: the configured managed_only). Not applied to start/end ranges."),
		),
		mcp.WithBoolean("dryRun",
			mcp.Description("Only report what would be deleted (default: false). Always true on a read-only server."),
		),
	)
	s.AddTool(clearTool, common.InstrumentedToolHandler("availability_clear", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleClear(ctx, request, sc)
		}))

	historyTool := mcp.NewTool("availability_history",
		mcp.WithDescription("List recent sync and clear runs, newest first."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of runs (default: 20)."),
		),
	)
	s.AddTool(historyTool, common.InstrumentedToolHandler("availability_history", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleHistory(ctx, request, sc)
		}))

	return nil
}

// dryRun applies the read-only default of the server to the requested value.
func dryRun(args map[string]interface{}, sc *server.ServerContext) (value, forced bool) {
	requested := common.GetBool(args, "dryRun", false)
	if !sc.Yolo() {
		return true, !requested
	}
	return requested, false
}

func handleSync(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	cfg := sc.Config()

	account, err := common.GetAccount(args, cfg.Account)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if v := common.GetString(args, "source"); v != "" {
		cfg.SourceCalendar = v
	}
	if v := common.GetString(args, "target"); v != "" {
		cfg.TargetCalendar = v
	}
	if v := common.GetString(args, "mode"); v != "" {
		cfg.Mode = v
	}
	if cfg.Days, err = common.GetInt(args, "days", cfg.Days); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := cfg.ValidateForSync(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	syncer, err := sc.Syncer(account)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := server.SyncOptions(&cfg)
	var forced bool
	opts.DryRun, forced = dryRun(args, sc)

	report, err := syncer.Sync(ctx, availability.NewWindow(syncer.Now(), cfg.Days), opts)
	if err != nil {
		if report == nil {
			return mcp.NewToolResultError(fmt.Sprintf("Sync failed: %v", err)), nil
		}
		return mcp.NewToolResultError(formatReport(report, false)), nil
	}
	return mcp.NewToolResultText(formatReport(report, forced)), nil
}

func handleClear(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	cfg := sc.Config()

	account, err := common.GetAccount(args, cfg.Account)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target := common.GetString(args, "target")
	if target == "" {
		target = cfg.TargetCalendar
	}
	if target == "" {
		return mcp.NewToolResultError(config.ErrNoTarget.Error()), nil
	}
	days, err := common.GetInt(args, "days", cfg.Days)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, err := common.GetTime(args, "start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end, err := common.GetTime(args, "end")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if start.IsZero() != end.IsZero() {
		return mcp.NewToolResultError("start and end must be given together"), nil
	}
	managedOnly := common.GetBool(args, "managedOnly", cfg.ManagedOnly)

	syncer, err := sc.Syncer(account)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dry, forced := dryRun(args, sc)

	if !start.IsZero() {
		block := availability.Block{Start: start, End: end}
		n, err := syncer.DeleteOverlapping(ctx, target, block, dry)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Clear failed after %d deletion(s): %v", n, err)), nil
		}
		verb := "Deleted"
		if dry {
			verb = "Would delete"
		}
		text := fmt.Sprintf("%s %d event(s) overlapping %s - %s in %s.", verb, n,
			start.Format(time.RFC3339), end.Format(time.RFC3339), target)
		if forced {
			text += "\n\n" + readOnlyNote
		}
		return mcp.NewToolResultText(text), nil
	}

	if days < 1 || days > config.MaxDays {
		return mcp.NewToolResultError(fmt.Sprintf("days must be between 1 and %d, got %d", config.MaxDays, days)), nil
	}
	report, err := syncer.Clear(ctx, target, availability.NewWindow(syncer.Now(), days), managedOnly, dry)
	if err != nil {
		if report == nil {
			return mcp.NewToolResultError(fmt.Sprintf("Clear failed: %v", err)), nil
		}
		return mcp.NewToolResultError(formatReport(report, false)), nil
	}
	return mcp.NewToolResultText(formatReport(report, forced)), nil
}

func handleHistory(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	history := sc.History()
	if history == nil {
		return mcp.NewToolResultError("run history is disabled: set history_db in the config file"), nil
	}

	limit, err := common.GetInt(request.GetArguments(), "limit", 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	runs, err := history.ListRuns(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list runs: %v", err)), nil
	}
	if len(runs) == 0 {
		return mcp.NewToolResultText("No runs recorded yet."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Last %d run(s):\n\n", len(runs))
	for i, run := range runs {
		fmt.Fprintf(&b, "%d. %s %s -> %s\n", i+1, run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.Source, run.Target)
		fmt.Fprintf(&b, "   Mode: %s", run.Mode)
		if run.DryRun {
			b.WriteString(" (dry run)")
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "   Created: %d, Deleted: %d, Kept: %d\n", run.Created, run.Deleted, run.Kept)
		fmt.Fprintf(&b, "   Duration: %s\n", run.Duration().Round(time.Millisecond))
		if !run.Succeeded() {
			fmt.Fprintf(&b, "   Error: %s\n", run.Error)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func formatReport(report *availability.Report, forced bool) string {
	var b strings.Builder
	b.WriteString(report.String())
	b.WriteString("\n")
	fmt.Fprintf(&b, "Run: %s\n", report.RunID)
	if report.Source != "" {
		fmt.Fprintf(&b, "Source: %s\n", report.Source)
	}
	fmt.Fprintf(&b, "Target: %s\n", report.Target)
	fmt.Fprintf(&b, "Window: %s\n", report.Window)
	if forced {
		b.WriteString("\n" + readOnlyNote + "\n")
	}
	return b.String()
}
