package output

import (
	"time"

	"github.com/google/uuid"
)

// Lifecycle event types streamed with --emit ndjson.
const (
	EventRunStarted     = "run.started"
	EventParentStarted  = "parent.started"
	EventChunkUpserted  = "chunk.upserted"
	EventParentFinished = "parent.finished"
	EventRunFinished    = "run.finished"
)

func knownEvent(typ string) bool {
	switch typ {
	case EventRunStarted, EventParentStarted, EventChunkUpserted, EventParentFinished, EventRunFinished:
		return true
	}
	return false
}

// Event is one lifecycle record of a sync run. Parent is "org/repo" for
// repository-scoped work and the org login for org-level projects.
type Event struct {
	Type       string    `json:"type"`
	RunID      string    `json:"run_id"`
	Time       time.Time `json:"time"`
	Kind       string    `json:"kind,omitempty"`
	Parent     string    `json:"parent,omitempty"`
	Collection string    `json:"collection,omitempty"`
	Records    int       `json:"records,omitempty"`
	Calls      int       `json:"calls,omitempty"`
	Parents    int       `json:"parents,omitempty"`
	Chunk      int       `json:"chunk,omitempty"`
	NotFound   bool      `json:"not_found,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	ExitCode   int       `json:"exit_code,omitempty"`
	Error      string    `json:"error,omitempty"`
}

func NewRunID() string {
	return uuid.NewString()
}
