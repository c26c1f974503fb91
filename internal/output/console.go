package output

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

// ConsoleSink prints a human progress line per finished parent and a run
// summary. Other events are ignored.
type ConsoleSink struct {
	writer io.Writer
	mu     sync.Mutex

	ok, warn, fail, bold *color.Color
}

func NewConsoleSink(w io.Writer, useColor bool) *ConsoleSink {
	if w == nil {
		w = os.Stderr
	}
	s := &ConsoleSink{
		writer: w,
		ok:     color.New(color.FgGreen),
		warn:   color.New(color.FgYellow),
		fail:   color.New(color.FgRed, color.Bold),
		bold:   color.New(color.Bold),
	}
	for _, c := range []*color.Color{s.ok, s.warn, s.fail, s.bold} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return s
}

func (s *ConsoleSink) Write(v any) error {
	e, ok := v.(Event)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	switch e.Type {
	case EventRunStarted:
		if e.Parents == 0 {
			// Repository discovery learns its parents while walking.
			_, err = fmt.Fprintf(s.writer, "%s %s\n", s.bold.Sprint("Syncing"), e.Kind)
			break
		}
		_, err = fmt.Fprintf(s.writer, "%s %s across %s parent(s)\n",
			s.bold.Sprint("Syncing"), e.Kind, humanize.Comma(int64(e.Parents)))
	case EventParentFinished:
		switch {
		case e.Error != "":
			_, err = fmt.Fprintf(s.writer, "  %s %s: %s\n", s.fail.Sprint("✗"), e.Parent, e.Error)
		case e.NotFound:
			_, err = fmt.Fprintf(s.writer, "  %s %s: not found or no permission, skipped\n", s.warn.Sprint("!"), e.Parent)
		default:
			_, err = fmt.Fprintf(s.writer, "  %s %s: %s %s in %s call(s), %s\n",
				s.ok.Sprint("✓"), e.Parent,
				humanize.Comma(int64(e.Records)), e.Kind,
				humanize.Comma(int64(e.Calls)),
				formatDuration(e.DurationMS))
		}
	case EventRunFinished:
		status := s.ok.Sprint("done")
		if e.ExitCode != 0 {
			status = s.fail.Sprintf("failed (exit %d)", e.ExitCode)
		}
		_, err = fmt.Fprintf(s.writer, "%s: %s record(s) from %s parent(s) in %s\n",
			status, humanize.Comma(int64(e.Records)), humanize.Comma(int64(e.Parents)), formatDuration(e.DurationMS))
	default:
		return nil
	}
	if err != nil {
		return err
	}
	return flush(s.writer)
}

func (s *ConsoleSink) Close() error { return nil }

func formatDuration(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	if d < time.Second {
		return d.String()
	}
	return d.Round(100 * time.Millisecond).String()
}
