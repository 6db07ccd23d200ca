package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/availsync/internal/availability"
	"github.com/teemow/availsync/internal/config"
	"github.com/teemow/availsync/internal/logging"
	"github.com/teemow/availsync/internal/progress"
	"github.com/teemow/availsync/internal/tools/common"
)

func newClearCmd() *cobra.Command {
	var (
		target      string
		days        int
		managedOnly bool
		dryRun      bool
		start       string
		end         string
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the availability events in the sync window",
		Long: `Delete the events of the availability calendar for the next days.

With --managed-only only events created by availsync are deleted.
With --start and --end every event overlapping that range is deleted instead,
whoever created it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("target") {
				cfg.TargetCalendar = target
			}
			if cmd.Flags().Changed("days") {
				cfg.Days = days
			}
			if cmd.Flags().Changed("managed-only") {
				cfg.ManagedOnly = managedOnly
			}
			if err := cfg.ValidateForSync(); err != nil {
				return err
			}

			rangeArgs := map[string]interface{}{"start": start, "end": end}
			from, err := common.GetTime(rangeArgs, "start")
			if err != nil {
				return err
			}
			to, err := common.GetTime(rangeArgs, "end")
			if err != nil {
				return err
			}
			if from.IsZero() != to.IsZero() {
				return fmt.Errorf("--start and --end must be given together")
			}

			return runClear(cmd, cfg, availability.Block{Start: from, End: to}, dryRun)
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Availability calendar ID to clear")
	cmd.Flags().IntVar(&days, "days", config.DefaultDays, "Number of days to clear, starting now")
	cmd.Flags().BoolVar(&managedOnly, "managed-only", false, "Only delete events that availsync created")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be deleted without deleting")
	cmd.Flags().StringVar(&start, "start", "", "Start of an explicit range to clear (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "End of an explicit range to clear (RFC 3339 or YYYY-MM-DD)")

	return cmd
}

// runClear clears the sync window, or only the events overlapping block when
// block is set.
func runClear(cmd *cobra.Command, cfg *config.Config, block availability.Block, dryRun bool) error {
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

	if !block.Start.IsZero() {
		n, err := syncer.DeleteOverlapping(ctx, cfg.TargetCalendar, block, dryRun)
		verb := "deleted"
		if dryRun {
			verb = "would delete"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "clear: %s %d event(s) overlapping %s - %s\n", verb, n,
			block.Start.Format(time.RFC3339), block.End.Format(time.RFC3339))
		return err
	}

	report, err := syncer.Clear(ctx, cfg.TargetCalendar, availability.NewWindow(syncer.Now(), cfg.Days), cfg.ManagedOnly, dryRun)
	if report != nil {
		fmt.Fprintln(cmd.OutOrStdout(), report.String())
	}
	return err
}
