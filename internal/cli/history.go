package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/petrijr/timeflow/internal/persistence"
	"github.com/petrijr/timeflow/pkg/api"
)

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history DB [TIMELINE_ID]",
		Short: "List recorded timelines, or the events of one timeline",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := persistence.OpenSQLiteEventStore(args[0])
			if err != nil {
				return fmt.Errorf("opening history: %w", err)
			}
			defer store.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				sums, err := store.ListTimelines(ctx)
				if err != nil {
					return err
				}
				printTimelines(out, sums, time.Now())
				return nil
			}

			evs, err := store.ListEvents(ctx, args[1])
			if err != nil {
				return err
			}
			if len(evs) == 0 {
				return fmt.Errorf("no events recorded for timeline %s", args[1])
			}
			printEvents(out, evs)
			return nil
		},
	}
}

func printTimelines(w io.Writer, sums []persistence.TimelineSummary, now time.Time) {
	if len(sums) == 0 {
		fmt.Fprintln(w, "No timelines recorded.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEVENTS\tSTATUS\tLAST ACTIVE\tSPAN")
	for _, s := range sums {
		name := s.TimelineName
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.TimelineID,
			name,
			humanize.Comma(int64(s.Events)),
			s.LastType,
			humanize.RelTime(s.LastAt, now, "ago", "from now"),
			s.LastAt.Sub(s.FirstAt).Round(time.Millisecond),
		)
	}
	_ = tw.Flush()
}

func printEvents(w io.Writer, evs []api.TimelineEvent) {
	first := evs[0].At

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "timeline %s", evs[0].TimelineID)
	if evs[0].TimelineName != "" {
		fmt.Fprintf(tw, " (%s)", evs[0].TimelineName)
	}
	fmt.Fprintf(tw, ", started %s\n", humanize.Time(first))
	fmt.Fprintln(tw, "OFFSET\tEVENT\tPASS\tSTEP\tDETAIL")
	for _, ev := range evs {
		fmt.Fprintf(tw, "+%s\t%s\t%d\t%d\t%s\n",
			ev.At.Sub(first).Round(time.Millisecond),
			ev.Type,
			ev.Pass,
			ev.Step,
			ev.Detail,
		)
	}
	_ = tw.Flush()
}
