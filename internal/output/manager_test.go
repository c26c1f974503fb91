package output

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

type recordingSink struct {
	events   []Event
	writeErr error
	closeErr error
	closes   int
}

func (s *recordingSink) Write(v any) error {
	if e, ok := v.(Event); ok {
		s.events = append(s.events, e)
	}
	return s.writeErr
}

func (s *recordingSink) Close() error {
	s.closes++
	return s.closeErr
}

type failingSink struct{ recordingSink }

func TestManager(t *testing.T) {
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	newManager := func(t *testing.T, sinks ...Sink) *Manager {
		t.Helper()
		mgr := NewManager("run-1")
		mgr.now = func() time.Time { return fixed }
		for _, s := range sinks {
			if err := mgr.AddSink(s); err != nil {
				t.Fatalf("AddSink error: %v", err)
			}
		}
		return mgr
	}

	t.Run("every sink sees every event", func(t *testing.T) {
		a, b := &recordingSink{}, &recordingSink{}
		mgr := newManager(t, a, b)

		for _, typ := range []string{EventRunStarted, EventParentStarted, EventRunFinished} {
			if err := mgr.Emit(Event{Type: typ, Kind: "issues"}); err != nil {
				t.Fatalf("Emit(%s) error: %v", typ, err)
			}
		}
		if len(a.events) != 3 || len(b.events) != 3 {
			t.Fatalf("want 3 events per sink, got %d and %d", len(a.events), len(b.events))
		}
	})

	t.Run("AddSink rejects nil", func(t *testing.T) {
		if err := NewManager("run-1").AddSink(nil); err == nil {
			t.Fatalf("AddSink(nil) want error, got nil")
		}
	})

	t.Run("unknown event types are rejected", func(t *testing.T) {
		a := &recordingSink{}
		mgr := newManager(t, a)
		if err := mgr.Emit(Event{Type: "run.paused"}); err == nil {
			t.Fatalf("want error for unknown type")
		}
		if len(a.events) != 0 {
			t.Fatalf("unknown event reached a sink: %+v", a.events)
		}
	})

	t.Run("a failing sink does not starve the others", func(t *testing.T) {
		bad := &failingSink{recordingSink{writeErr: errors.New("disk full")}}
		good := &recordingSink{}
		mgr := newManager(t, bad, good)

		err := mgr.Emit(Event{Type: EventChunkUpserted})
		if err == nil {
			t.Fatalf("Emit want error, got nil")
		}
		for _, want := range []string{"emitting chunk.upserted", "disk full", "failingSink"} {
			if !strings.Contains(err.Error(), want) {
				t.Fatalf("Emit error missing %q; got: %s", want, err)
			}
		}
		if len(good.events) != 1 {
			t.Fatalf("healthy sink missed the event")
		}
	})

	t.Run("Close is idempotent and aggregates errors", func(t *testing.T) {
		a := &recordingSink{closeErr: errors.New("close-a")}
		b := &failingSink{recordingSink{closeErr: errors.New("close-b")}}
		mgr := newManager(t, a, b)

		err := mgr.Close()
		if err == nil {
			t.Fatalf("Close want error, got nil")
		}
		for _, want := range []string{"closing sinks", "close-a", "close-b"} {
			if !strings.Contains(err.Error(), want) {
				t.Fatalf("Close error missing %q; got: %s", want, err)
			}
		}
		if err := mgr.Close(); err != nil {
			t.Fatalf("second Close: %v", err)
		}
		if a.closes != 1 || b.closes != 1 {
			t.Fatalf("sinks closed %d and %d times", a.closes, b.closes)
		}
		if err := mgr.Emit(Event{Type: EventRunFinished}); !errors.Is(err, ErrClosed) {
			t.Fatalf("Emit after Close: want ErrClosed, got %v", err)
		}
		if err := mgr.AddSink(&recordingSink{}); !errors.Is(err, ErrClosed) {
			t.Fatalf("AddSink after Close: want ErrClosed, got %v", err)
		}
	})

	t.Run("Emit stamps run id and time", func(t *testing.T) {
		a := &recordingSink{}
		mgr := newManager(t, a)

		if err := mgr.Emit(Event{Type: EventRunStarted}); err != nil {
			t.Fatalf("Emit error: %v", err)
		}
		if err := mgr.Emit(Event{Type: EventRunFinished, RunID: "other"}); err != nil {
			t.Fatalf("Emit error: %v", err)
		}

		if first := a.events[0]; first.RunID != "run-1" || !first.Time.Equal(fixed) {
			t.Fatalf("unexpected stamp: %+v", first)
		}
		if second := a.events[1]; second.RunID != "other" {
			t.Fatalf("explicit run id overwritten: %+v", second)
		}
	})
}

func TestFlush(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	_, _ = w.WriteString("pending")
	if err := flush(w); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if buf.String() != "pending" {
		t.Fatalf("buffered output not flushed: %q", buf.String())
	}
	if err := flush(&buf); err != nil {
		t.Fatalf("flush of plain writer: %v", err)
	}
}
