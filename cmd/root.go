package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the availsync application
var rootCmd = &cobra.Command{
	Use:   "availsync",
	Short: "Mirrors the busy time of a Google calendar into an availability calendar",
	Long: `availsync copies the busy time of a source Google calendar into a separate
availability calendar as opaque placeholder events, without titles or details.
Share the availability calendar instead of your real one.

It can run as:
  - A one-shot CLI (default: sync)
  - A periodic daemon with health and metrics endpoints (serve)
  - An MCP (Model Context Protocol) server for AI assistants (mcp)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "availsync version %s\n" .Version}}`)

	// If no subcommand is provided, run the sync command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "sync")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	addGlobalFlags(rootCmd)

	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newClearCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newCalendarsCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMCPCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
