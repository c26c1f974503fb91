package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestReportSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	s, err := NewReportSink(path)
	if err != nil {
		t.Fatalf("NewReportSink: %v", err)
	}

	started := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	events := []Event{
		{Type: EventRunStarted, RunID: "run-9", Kind: "issues", Time: started},
		{Type: EventChunkUpserted, Parent: "acme/widgets"},
		{Type: EventChunkUpserted, Parent: "acme/widgets"},
		{Type: EventParentFinished, Parent: "acme/widgets", Collection: "gh_issues_acme_widgets", Records: 150, Calls: 2},
		{Type: EventParentFinished, Parent: "acme/gone", Collection: "gh_issues_acme_gone", NotFound: true, Calls: 1},
		{Type: EventParentFinished, Parent: "acme/bad", Collection: "gh_issues_acme_bad", Error: "retry ceiling"},
		{Type: EventRunFinished, Records: 150, DurationMS: 4000, ExitCode: 3},
	}
	for _, e := range events {
		if err := s.Write(e); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	got := string(b)
	for _, want := range []string{
		"# Sync report",
		"- Kind: `issues`",
		"- Run: `run-9`",
		"- Started: 2025-01-02T03:04:05Z",
		"- Records: 150",
		"- Exit code: 3",
		"| acme/widgets | `gh_issues_acme_widgets` | 150 | 2 | 2 |",
		"## Not found\n\n- acme/gone",
		"## Errors\n\n- acme/bad: retry ceiling",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("report missing %q:\n%s", want, got)
		}
	}
	if strings.Index(got, "acme/bad") > strings.Index(got, "acme/widgets") {
		t.Fatalf("parents should be sorted:\n%s", got)
	}
}

func TestNewReportSink_RequiresPath(t *testing.T) {
	if _, err := NewReportSink(""); err == nil {
		t.Fatalf("expected error")
	}
}
