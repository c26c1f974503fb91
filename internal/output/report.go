package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// ReportSink collects lifecycle events and writes a Markdown run report on
// Close.
type ReportSink struct {
	path    string
	mu      sync.Mutex
	started *Event
	parents []Event
	chunks  map[string]int
	done    *Event
}

func NewReportSink(path string) (*ReportSink, error) {
	if path == "" {
		return nil, fmt.Errorf("report path required")
	}
	// Fail early rather than after a long sync.
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}
	_ = f.Close()
	return &ReportSink{path: path, chunks: make(map[string]int)}, nil
}

func (s *ReportSink) Write(v any) error {
	e, ok := v.(Event)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch e.Type {
	case EventRunStarted:
		s.started = &e
	case EventChunkUpserted:
		s.chunks[e.Parent]++
	case EventParentFinished:
		s.parents = append(s.parents, e)
	case EventRunFinished:
		s.done = &e
	}
	return nil
}

func (s *ReportSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	b.WriteString("# Sync report\n\n")

	if s.started != nil {
		fmt.Fprintf(&b, "- Kind: `%s`\n", s.started.Kind)
		fmt.Fprintf(&b, "- Run: `%s`\n", s.started.RunID)
		fmt.Fprintf(&b, "- Started: %s\n", s.started.Time.UTC().Format(time.RFC3339))
	}
	if s.done != nil {
		fmt.Fprintf(&b, "- Records: %s\n", humanize.Comma(int64(s.done.Records)))
		fmt.Fprintf(&b, "- Duration: %s\n", formatDuration(s.done.DurationMS))
		fmt.Fprintf(&b, "- Exit code: %d\n", s.done.ExitCode)
	}

	parents := append([]Event(nil), s.parents...)
	sort.SliceStable(parents, func(i, j int) bool { return parents[i].Parent < parents[j].Parent })

	var skipped, failed []Event
	b.WriteString("\n## Parents\n\n")
	b.WriteString("| Parent | Collection | Records | Calls | Chunks |\n")
	b.WriteString("|---|---|---:|---:|---:|\n")
	for _, p := range parents {
		switch {
		case p.Error != "":
			failed = append(failed, p)
		case p.NotFound:
			skipped = append(skipped, p)
		}
		fmt.Fprintf(&b, "| %s | `%s` | %d | %d | %d |\n", p.Parent, p.Collection, p.Records, p.Calls, s.chunks[p.Parent])
	}

	if len(skipped) > 0 {
		b.WriteString("\n## Not found\n\n")
		for _, p := range skipped {
			fmt.Fprintf(&b, "- %s\n", p.Parent)
		}
	}
	if len(failed) > 0 {
		b.WriteString("\n## Errors\n\n")
		for _, p := range failed {
			fmt.Fprintf(&b, "- %s: %s\n", p.Parent, p.Error)
		}
	}

	if err := os.WriteFile(s.path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
