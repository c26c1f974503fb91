package output

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// ErrClosed is returned by Emit after Close.
var ErrClosed = errors.New("output manager is closed")

// Sink receives lifecycle events (and, for audit sinks, records).
type Sink interface {
	Write(v any) error
	Close() error
}

// Manager fans the lifecycle events of one run out to every registered
// sink and stamps them with the run id. Closing it closes every sink once.
type Manager struct {
	mu     sync.Mutex
	runID  string
	now    func() time.Time
	sinks  []Sink
	closed bool
}

func NewManager(runID string) *Manager {
	return &Manager{runID: runID, now: time.Now}
}

func (m *Manager) RunID() string {
	if m == nil {
		return ""
	}
	return m.runID
}

func (m *Manager) AddSink(s Sink) error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	if s == nil {
		return fmt.Errorf("sink must not be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.sinks = append(m.sinks, s)
	return nil
}

// Emit fills in RunID and Time when unset and writes e to all sinks. Every
// sink sees the event even when an earlier one fails.
func (m *Manager) Emit(e Event) error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	if !knownEvent(e.Type) {
		return fmt.Errorf("unknown event type %q", e.Type)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if e.RunID == "" {
		e.RunID = m.runID
	}
	if e.Time.IsZero() {
		e.Time = m.now().UTC()
	}

	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(e); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", s, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("emitting %s: %w", e.Type, errors.Join(errs...))
	}
	return nil
}

// Close closes the sinks in registration order. Later calls are no-ops.
func (m *Manager) Close() error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", s, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("closing sinks: %w", errors.Join(errs...))
	}
	return nil
}

type flusher interface {
	Flush() error
}

// flush pushes buffered output (a *bufio.Writer, say) through so event
// consumers see each line as it is written.
func flush(w io.Writer) error {
	if f, ok := w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
