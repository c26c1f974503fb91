package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// AuditPath returns the audit trail file for one parent and kind:
// <configDir>/cache/gh_<kind>_<org>_<repo>.ndjson. An empty repo names an
// org-level file.
func AuditPath(configDir, kind, org, repo string) string {
	name := "gh_" + kind + "_" + org
	if repo != "" {
		name += "_" + repo
	}
	return filepath.Join(configDir, "cache", strings.ToLower(name)+".ndjson")
}

// AuditSink appends every written value as one JSON line. The file is
// opened in append mode so successive runs accumulate; it is never read
// back by the indexer.
type AuditSink struct {
	path string
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

type auditHeader struct {
	Type      string    `json:"type"`
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
}

// NewAuditSink opens path for appending and writes a header line carrying
// the run id, so the records of one run can be told apart.
func NewAuditSink(path, runID string) (*AuditSink, error) {
	if path == "" {
		return nil, fmt.Errorf("audit path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}

	s := &AuditSink{path: path, file: f, enc: json.NewEncoder(f)}
	if err := s.enc.Encode(auditHeader{Type: "run", RunID: runID, StartedAt: time.Now().UTC()}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write audit header: %w", err)
	}
	return s, nil
}

func (s *AuditSink) Path() string { return s.path }

func (s *AuditSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return fmt.Errorf("audit sink %s is closed", s.path)
	}
	return s.enc.Encode(v)
}

func (s *AuditSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
