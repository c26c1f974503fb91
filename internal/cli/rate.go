package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var rateCmd = &cobra.Command{
	Use:   "rate",
	Short: "Show the remaining GitHub API quota",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(cmd, true, func(ctx context.Context, s *session) error {
			limits, err := s.client.RateLimits(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RESOURCE\tLIMIT\tUSED\tREMAINING\tRESETS")
			now := time.Now()
			for _, l := range limits {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					l.Resource,
					humanize.Comma(int64(l.Limit)),
					humanize.Comma(int64(l.Used)),
					humanize.Comma(int64(l.Remaining)),
					humanize.RelTime(l.ResetAt, now, "ago", "from now"),
				)
			}
			return tw.Flush()
		})
	},
}

func init() {
	rootCmd.AddCommand(rateCmd)
}
