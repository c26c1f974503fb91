package engine

import "time"

// ParentResult is the outcome of syncing one target.
//
// It is produced by a Syncer and folded into the run summary by the engine.
type ParentResult struct {
	Target   Target
	Records  int
	Calls    int
	Received int
	// NotFound is set when the parent no longer resolves on GitHub.
	NotFound bool
	// Stopped is set when the walk ended at the indexed high-water mark.
	Stopped  bool
	Duration time.Duration
}
