package quota

import (
	"context"
	"testing"
	"time"
)

func TestDelay(t *testing.T) {
	fixedNow := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name  string
		state State
		want  time.Duration
	}{
		{
			name:  "plenty of quota",
			state: State{Limit: 5000, Cost: 1, Remaining: 4000, ResetAt: fixedNow.Add(time.Hour)},
			want:  0,
		},
		{
			name:  "exactly at watermark does not pause",
			state: State{Limit: 5000, Cost: 1, Remaining: 51, ResetAt: fixedNow.Add(time.Hour)},
			want:  0,
		},
		{
			name:  "below watermark pauses until reset plus buffer",
			state: State{Limit: 5000, Cost: 1, Remaining: 50, ResetAt: fixedNow.Add(90 * time.Second)},
			want:  90*time.Second + DefaultBuffer,
		},
		{
			name:  "cost counts against remaining",
			state: State{Limit: 5000, Cost: 20, Remaining: 60, ResetAt: fixedNow.Add(time.Minute)},
			want:  time.Minute + DefaultBuffer,
		},
		{
			name:  "unknown reset never pauses",
			state: State{Limit: 5000, Cost: 1, Remaining: 0},
			want:  0,
		},
		{
			name:  "reset in the past waits only the buffer",
			state: State{Limit: 5000, Cost: 1, Remaining: 0, ResetAt: fixedNow.Add(-time.Minute)},
			want:  DefaultBuffer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Delay(tt.state, fixedNow, DefaultBuffer); got != tt.want {
				t.Fatalf("Delay() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGovernor(t *testing.T) {
	fixedNow := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	newGovernor := func(t *testing.T, slept *[]time.Duration) *Governor {
		t.Helper()
		g := NewGovernor(WithSpacing(0))
		g.now = func() time.Time { return fixedNow }
		g.sleep = func(_ context.Context, d time.Duration) error {
			*slept = append(*slept, d)
			return nil
		}
		return g
	}

	t.Run("starts with the assumed initial quota", func(t *testing.T) {
		var slept []time.Duration
		g := newGovernor(t, &slept)
		if got := g.State(); got != InitialState() {
			t.Fatalf("State() = %+v, want %+v", got, InitialState())
		}
		if err := g.Wait(context.Background()); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
		if len(slept) != 0 {
			t.Fatalf("expected no pause, got %v", slept)
		}
	})

	t.Run("Update overwrites state and low quota pauses", func(t *testing.T) {
		var slept []time.Duration
		g := newGovernor(t, &slept)
		g.Update(State{Limit: 5000, Cost: 1, Remaining: 10, ResetAt: fixedNow.Add(30 * time.Second)})

		if err := g.Wait(context.Background()); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
		if len(slept) != 1 || slept[0] != 30*time.Second+DefaultBuffer {
			t.Fatalf("unexpected pauses: %v", slept)
		}

		g.Update(State{Limit: 5000, Cost: 1, Remaining: 5000, ResetAt: fixedNow.Add(time.Hour)})
		if err := g.Wait(context.Background()); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
		if len(slept) != 1 {
			t.Fatalf("expected refreshed quota to skip pause, got %v", slept)
		}
	})

	t.Run("custom buffer", func(t *testing.T) {
		var slept []time.Duration
		g := NewGovernor(WithSpacing(0), WithBuffer(2*time.Second))
		g.now = func() time.Time { return fixedNow }
		g.sleep = func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		}
		g.Update(State{Cost: 1, Remaining: 1, ResetAt: fixedNow.Add(time.Second)})
		if err := g.Wait(context.Background()); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
		if len(slept) != 1 || slept[0] != 3*time.Second {
			t.Fatalf("unexpected pauses: %v", slept)
		}
	})

	t.Run("pause honours cancellation", func(t *testing.T) {
		g := NewGovernor(WithSpacing(0))
		g.now = func() time.Time { return fixedNow }
		g.Update(State{Cost: 1, Remaining: 0, ResetAt: fixedNow.Add(time.Hour)})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := g.Wait(ctx); err == nil {
			t.Fatalf("expected context deadline exceeded")
		}
	})

	t.Run("spacing separates consecutive calls", func(t *testing.T) {
		g := NewGovernor(WithSpacing(40 * time.Millisecond))

		start := time.Now()
		for i := 0; i < 3; i++ {
			if err := g.Wait(context.Background()); err != nil {
				t.Fatalf("Wait %d failed: %v", i, err)
			}
		}
		if elapsed := time.Since(start); elapsed < 70*time.Millisecond {
			t.Fatalf("expected at least two spacing intervals, got %v", elapsed)
		}
	})

	t.Run("quota pause is followed by a full spacing interval", func(t *testing.T) {
		var slept []time.Duration
		g := NewGovernor(WithSpacing(time.Second), WithSleep(func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		}))
		g.now = func() time.Time { return fixedNow }
		g.Update(State{Cost: 1, Remaining: 10, ResetAt: fixedNow.Add(30 * time.Second)})

		if err := g.Wait(context.Background()); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
		if want := 30*time.Second + DefaultBuffer + time.Second; len(slept) != 1 || slept[0] != want {
			t.Fatalf("unexpected pauses: %v, want [%v]", slept, want)
		}
	})

	t.Run("backoff waits the spacing even after a slow call", func(t *testing.T) {
		const spacing = 40 * time.Millisecond
		g := NewGovernor(WithSpacing(spacing))

		if err := g.Wait(context.Background()); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
		// The failing call outlasts the spacing interval.
		time.Sleep(2 * spacing)

		start := time.Now()
		if err := g.Backoff(context.Background()); err != nil {
			t.Fatalf("Backoff failed: %v", err)
		}
		if err := g.Wait(context.Background()); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
		if elapsed := time.Since(start); elapsed < spacing {
			t.Fatalf("retry went out after %v, want at least %v", elapsed, spacing)
		}
	})

	t.Run("backoff without spacing does not sleep", func(t *testing.T) {
		var slept []time.Duration
		g := newGovernor(t, &slept)
		if err := g.Backoff(context.Background()); err != nil {
			t.Fatalf("Backoff failed: %v", err)
		}
		if len(slept) != 0 {
			t.Fatalf("expected no sleep, got %v", slept)
		}
	})

	t.Run("backoff honours cancellation", func(t *testing.T) {
		g := NewGovernor(WithSpacing(time.Hour))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := g.Backoff(ctx); err == nil {
			t.Fatalf("expected context canceled")
		}
	})

	t.Run("nil context fails fast", func(t *testing.T) {
		g := NewGovernor(WithSpacing(0))
		var nilCtx context.Context
		if err := g.Wait(nilCtx); err == nil {
			t.Fatalf("expected error")
		}
	})
}
