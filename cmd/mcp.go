package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/availsync/internal/config"
	"github.com/teemow/availsync/internal/logging"
	"github.com/teemow/availsync/internal/resources"
	"github.com/teemow/availsync/internal/server"
	"github.com/teemow/availsync/internal/tools/availability_tools"
	"github.com/teemow/availsync/internal/tools/calendar_tools"
)

func newMCPCmd() *cobra.Command {
	var yolo bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server on stdio",
		Long: `Start an MCP (Model Context Protocol) server on stdin/stdout so AI assistants
can run syncs, clear the availability calendar and inspect the run history.

The server is read-only by default: write tools run as dry runs and report what
they would change. Use --yolo to let them modify the availability calendar.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(yolo)
		},
	}

	cmd.Flags().BoolVar(&yolo, "yolo", false, "Allow tools to modify the availability calendar (default: dry runs only)")

	return cmd
}

func runMCP(yolo bool) error {
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Logs go to stderr, stdout belongs to the protocol.
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	provider, err := newInstrumentation(shutdownCtx, true)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		_ = provider.Shutdown(ctx)
	}()
	metrics := provider.Metrics()

	tokenProvider, err := newTokenProvider(cfg, metrics)
	if err != nil {
		return err
	}

	opts := []server.ServerContextOption{
		server.WithMetrics(metrics),
		server.WithLogger(logging.DefaultLogger()),
		server.WithYolo(yolo),
	}
	if history := openHistory(cfg); history != nil {
		defer history.Close()
		opts = append(opts, server.WithHistory(history))
	}

	serverContext, err := server.NewServerContext(shutdownCtx, cfg, server.CalendarClientFactory(tokenProvider, metrics), opts...)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	mcpSrv := newMCPServer()
	if err := registerAllTools(mcpSrv, serverContext); err != nil {
		return err
	}

	if err := resources.RegisterResources(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register resources: %w", err)
	}

	if yolo {
		slog.Info("starting MCP server with write operations enabled")
	} else {
		slog.Info("starting MCP server in read-only mode (use --yolo to enable write operations)")
	}

	return runStdioServer(mcpSrv)
}

func newMCPServer() *mcpserver.MCPServer {
	return mcpserver.NewMCPServer("availsync", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// registerAllTools registers every MCP tool group.
func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext) error {
	registrations := []struct {
		name     string
		register func(*mcpserver.MCPServer, *server.ServerContext) error
	}{
		{name: "availability", register: availability_tools.RegisterAvailabilityTools},
		{name: "calendar", register: calendar_tools.RegisterCalendarTools},
	}

	for _, reg := range registrations {
		if err := reg.register(mcpSrv, sc); err != nil {
			return fmt.Errorf("failed to register %s tools: %w", reg.name, err)
		}
	}
	return nil
}

// docsServerContext returns a server context whose clients always fail. It is
// enough to register tools without credentials.
func docsServerContext(ctx context.Context) (*server.ServerContext, error) {
	noClient := func(ctx context.Context, account string) (server.CalendarClient, error) {
		return nil, fmt.Errorf("no calendar client available for account %s", account)
	}
	return server.NewServerContext(ctx, config.Default(), noClient)
}
