package output

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

// RepoRow is one line of the repositories table.
type RepoRow struct {
	FullName  string
	Active    bool
	Private   bool
	Archived  bool
	UpdatedAt time.Time
}

// WriteRepoTable prints repositories with their active flag, in the given
// order.
func WriteRepoTable(w io.Writer, rows []RepoRow, now time.Time) error {
	on := color.New(color.FgGreen)
	off := color.New(color.Faint)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REPOSITORY\tACTIVE\tVISIBILITY\tUPDATED")
	active := 0
	for _, r := range rows {
		flag := off.Sprint("no")
		if r.Active {
			flag = on.Sprint("yes")
			active++
		}
		vis := "public"
		if r.Private {
			vis = "private"
		}
		if r.Archived {
			vis += ",archived"
		}
		updated := "-"
		if !r.UpdatedAt.IsZero() {
			updated = humanize.RelTime(r.UpdatedAt, now, "ago", "from now")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.FullName, flag, vis, updated)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s repositories, %s active\n",
		humanize.Comma(int64(len(rows))), humanize.Comma(int64(active)))
	return err
}
