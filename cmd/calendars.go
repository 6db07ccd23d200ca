package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teemow/availsync/internal/calendar"
)

func newCalendarsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendars",
		Short: "List the calendars of the account",
		Long: `List every calendar the account can access with its ID and access role.
Use it to find the ID of the availability calendar. It must be writable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			client, err := newCalendarClient(ctx, cfg, nil)
			if err != nil {
				return err
			}
			calendars, err := client.ListCalendars(ctx)
			if err != nil {
				return err
			}

			return printCalendars(cmd, calendars, cfg.SourceCalendar, cfg.TargetCalendar)
		},
	}
	return cmd
}

func printCalendars(cmd *cobra.Command, calendars []calendar.CalendarInfo, source, target string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tROLE\tNOTE\tSUMMARY")
	for _, c := range calendars {
		note := ""
		switch {
		case c.ID == target:
			note = "target"
		case c.ID == source || (c.Primary && source == "primary"):
			note = "source"
		case c.Primary:
			note = "primary"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.AccessRole, note, c.Summary)
	}
	return w.Flush()
}
