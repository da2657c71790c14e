package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/petrijr/timeflow/internal/config"
	"github.com/petrijr/timeflow/pkg/duration"
)

func newParseCmd() *cobra.Command {
	var cron bool

	cmd := &cobra.Command{
		Use:   "parse DURATION...",
		Short: "Parse duration descriptors the way scripts do",
		Example: `  timeflow parse 250 1.5s 2m
  timeflow parse --cron "*/5 * * * *" "@every 90s"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			now := time.Now()

			var failed int
			for _, arg := range args {
				var (
					d   time.Duration
					err error
				)
				if cron {
					d, err = duration.Cron(arg).Resolve(now)
				} else {
					var desc any
					if desc, err = config.Descriptor(arg); err == nil {
						d, err = duration.Parse(desc)
					}
				}
				if err != nil {
					failed++
					fmt.Fprintf(out, "%-16s error: %v\n", arg, err)
					continue
				}
				fmt.Fprintf(out, "%-16s %-12s %gms\n", arg, d, duration.Milliseconds(d))
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d descriptors are invalid", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&cron, "cron", false, "treat arguments as cron expressions and print the delay until the next match")
	return cmd
}
