package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// EmitSink writes lifecycle events for machines.
//
// Formats:
//   - json: collects events and writes a single JSON array on Close
//   - ndjson: streams one event per line, flushed per write
type EmitSink struct {
	writer io.Writer
	format string
	mu     sync.Mutex
	events []Event
}

func NewEmitSink(w io.Writer, format string) (*EmitSink, error) {
	if w == nil {
		return nil, fmt.Errorf("emit sink writer must not be nil")
	}
	if format != "json" && format != "ndjson" {
		return nil, fmt.Errorf("unsupported emit format: %s", format)
	}
	return &EmitSink{writer: w, format: format}, nil
}

func (s *EmitSink) Write(v any) error {
	e, ok := v.(Event)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == "json" {
		s.events = append(s.events, e)
		return nil
	}
	if err := json.NewEncoder(s.writer).Encode(e); err != nil {
		return err
	}
	return flush(s.writer)
}

func (s *EmitSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format != "json" {
		return nil
	}
	events := s.events
	if events == nil {
		events = []Event{}
	}
	encoder := json.NewEncoder(s.writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(events); err != nil {
		return err
	}
	return flush(s.writer)
}
