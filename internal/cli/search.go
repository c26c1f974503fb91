package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ghindexer/internal/flags"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search COLLECTION TEXT...",
	Short: "Full-text search one collection of the index",
	Example: `  ghindexer search gh_issues_acme_widgets flaky test
  ghindexer search gh_repos widgets --limit 5`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		collection := strings.ToLower(args[0])
		text := strings.Join(args[1:], " ")
		return runSession(cmd, false, func(ctx context.Context, s *session) error {
			hits, err := s.engine.Search(ctx, collection, text, searchLimit)
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No matches.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tTITLE\tUPDATED\tURL")
			now := time.Now()
			for _, h := range hits {
				num := ""
				if h.Number > 0 {
					num = fmt.Sprintf("%d", h.Number)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", num, h.Title, humanize.RelTime(h.UpdatedAt, now, "ago", "from now"), h.URL)
			}
			return tw.Flush()
		})
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, flags.FlagLimit, 20, "Maximum number of matches")
	rootCmd.AddCommand(searchCmd)
}
