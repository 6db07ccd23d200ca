package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/availsync/internal/availability"
	"github.com/teemow/availsync/internal/config"
	"github.com/teemow/availsync/internal/logging"
	"github.com/teemow/availsync/internal/progress"
	"github.com/teemow/availsync/internal/server"
)

// syncFlags are the sync options that can be set on the command line.
type syncFlags struct {
	source           string
	target           string
	days             int
	mode             string
	summary          string
	mergeOverlapping bool
	skipDeclined     bool
	managedOnly      bool
	dryRun           bool
}

// apply overrides cfg with the flags that were set on cmd.
func (f *syncFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.SourceCalendar = f.source
	}
	if flags.Changed("target") {
		cfg.TargetCalendar = f.target
	}
	if flags.Changed("days") {
		cfg.Days = f.days
	}
	if flags.Changed("mode") {
		cfg.Mode = f.mode
	}
	if flags.Changed("summary") {
		cfg.Summary = f.summary
	}
	if flags.Changed("merge-overlapping") {
		cfg.MergeOverlapping = f.mergeOverlapping
	}
	if flags.Changed("skip-declined") {
		cfg.SkipDeclined = f.skipDeclined
	}
	if flags.Changed("managed-only") {
		cfg.ManagedOnly = f.managedOnly
	}
}

func newSyncCmd() *cobra.Command {
	var f syncFlags

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror the busy time of the source calendar into the availability calendar",
		Long: `Read the events of the source calendar for the next days, turn every busy
event into an opaque placeholder and write the placeholders to the target
calendar.

Modes:
  replace    delete every event in the target window, then recreate (default)
  reconcile  keep events that still match, only create and delete the difference

This is the default command when no subcommand is specified.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			f.apply(cmd, cfg)
			if err := cfg.ValidateForSync(); err != nil {
				return err
			}
			return runSync(cmd, cfg, f.dryRun)
		},
	}

	f.register(cmd)

	return cmd
}

// register binds the sync flags to cmd.
func (f *syncFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.source, "source", "", "Source calendar ID (default: primary)")
	cmd.Flags().StringVar(&f.target, "target", "", "Availability calendar ID to write to")
	cmd.Flags().IntVar(&f.days, "days", config.DefaultDays, fmt.Sprintf("Number of days to sync, starting now (1-%d)", config.MaxDays))
	cmd.Flags().StringVar(&f.mode, "mode", config.DefaultMode, "Sync mode: replace or reconcile")
	cmd.Flags().StringVar(&f.summary, "summary", config.DefaultSummary, "Title of the created events")
	cmd.Flags().BoolVar(&f.mergeOverlapping, "merge-overlapping", false, "Merge overlapping and adjacent busy blocks into one event")
	cmd.Flags().BoolVar(&f.skipDeclined, "skip-declined", false, "Ignore events you declined")
	cmd.Flags().BoolVar(&f.managedOnly, "managed-only", false, "Only delete events that availsync created")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Show what would change without writing")
}

func runSync(cmd *cobra.Command, cfg *config.Config, dryRun bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, err := newCalendarClient(ctx, cfg, nil)
	if err != nil {
		return err
	}

	opts := []availability.SyncerOption{
		availability.WithLogger(logging.DefaultLogger()),
		availability.WithProgress(progress.Stderr()),
	}
	if history := openHistory(cfg); history != nil {
		defer history.Close()
		opts = append(opts, availability.WithRecorder(history.Recorder()))
	}
	syncer := availability.NewSyncer(client, opts...)

	syncOpts := server.SyncOptions(cfg)
	syncOpts.DryRun = dryRun

	report, err := syncer.Sync(ctx, availability.NewWindow(syncer.Now(), cfg.Days), syncOpts)
	if report != nil {
		fmt.Fprintln(cmd.OutOrStdout(), report.String())
	}
	return err
}
