package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/availsync/internal/store"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sync runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.HistoryDB == "" {
				return fmt.Errorf("run history is disabled: set history_db in the config file")
			}

			st, err := store.Open(cfg.HistoryDB)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns(context.Background(), limit)
			if err != nil {
				return err
			}
			return printRuns(cmd, runs)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", store.DefaultLimit, "Maximum number of runs to show")
	return cmd
}

func printRuns(cmd *cobra.Command, runs []store.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tMODE\tTARGET\tCREATED\tDELETED\tKEPT\tDURATION\tRESULT")
	for _, r := range runs {
		mode := r.Mode
		if r.DryRun {
			mode += " (dry run)"
		}
		result := "ok"
		if !r.Succeeded() {
			result = r.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), mode, r.Target,
			r.Created, r.Deleted, r.Kept, r.Duration().Round(time.Millisecond), result)
	}
	return w.Flush()
}
