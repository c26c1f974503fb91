package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
)

func TestWriteRepoTable(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	rows := []RepoRow{
		{FullName: "acme/api", Active: true, Private: true, UpdatedAt: now.Add(-48 * time.Hour)},
		{FullName: "acme/old", Archived: true},
	}

	var buf bytes.Buffer
	if err := WriteRepoTable(&buf, rows, now); err != nil {
		t.Fatalf("WriteRepoTable: %v", err)
	}
	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, 2 rows and summary, got %d lines:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "REPOSITORY") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[1], "acme/api") || !strings.Contains(lines[1], "yes") || !strings.Contains(lines[1], "private") || !strings.Contains(lines[1], "2 days ago") {
		t.Fatalf("unexpected row %q", lines[1])
	}
	if !strings.Contains(lines[2], "no") || !strings.Contains(lines[2], "public,archived") || !strings.HasSuffix(strings.TrimSpace(lines[2]), "-") {
		t.Fatalf("unexpected row %q", lines[2])
	}
	if lines[3] != "2 repositories, 1 active" {
		t.Fatalf("unexpected summary %q", lines[3])
	}
}
