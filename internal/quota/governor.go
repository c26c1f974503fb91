package quota

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// LowWatermark is the remaining-after-cost threshold below which calls
	// wait for the quota window to reset.
	LowWatermark = 50

	DefaultBuffer  = 10 * time.Second
	DefaultSpacing = time.Second
)

// State is the GraphQL rateLimit block. A zero ResetAt means the reset
// instant is unknown.
type State struct {
	Limit     int       `json:"limit"`
	Cost      int       `json:"cost"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
}

// InitialState is assumed until the first response reports the real quota.
func InitialState() State {
	return State{Limit: 5000, Cost: 1, Remaining: 5000}
}

// Delay returns how long to pause before the next call given the last
// observed state. It is zero unless the next call would leave fewer than
// LowWatermark points and the reset instant is known.
func Delay(s State, now time.Time, buffer time.Duration) time.Duration {
	if s.Remaining-s.Cost >= LowWatermark {
		return 0
	}
	if s.ResetAt.IsZero() {
		return 0
	}
	wait := s.ResetAt.Sub(now)
	if wait < 0 {
		wait = 0
	}
	return wait + buffer
}

// Governor paces calls against a single GitHub quota. Call starts are at
// least one spacing interval apart, calls pause until reset when the quota
// runs low, and a full spacing interval follows every quota pause and every
// failed call.
type Governor struct {
	mu      sync.Mutex
	state   State
	buffer  time.Duration
	spacing time.Duration
	limiter *rate.Limiter
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
	logger  *slog.Logger
}

type Option func(*Governor)

// WithBuffer sets the extra pause added after the reset instant.
func WithBuffer(d time.Duration) Option {
	return func(g *Governor) {
		if d >= 0 {
			g.buffer = d
		}
	}
}

// WithSpacing sets the minimum interval between calls. Zero disables it.
func WithSpacing(d time.Duration) Option {
	return func(g *Governor) {
		if d <= 0 {
			g.spacing = 0
			g.limiter = nil
			return
		}
		g.spacing = d
		g.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithSleep replaces the context-aware sleep used for pauses and backoff.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(g *Governor) {
		if sleep != nil {
			g.sleep = sleep
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(g *Governor) {
		if l != nil {
			g.logger = l
		}
	}
}

func NewGovernor(opts ...Option) *Governor {
	g := &Governor{
		state:   InitialState(),
		buffer:  DefaultBuffer,
		spacing: DefaultSpacing,
		limiter: rate.NewLimiter(rate.Every(DefaultSpacing), 1),
		now:     time.Now,
		sleep:   sleepContext,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, apply := range opts {
		if apply != nil {
			apply(g)
		}
	}
	return g
}

func (g *Governor) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Update overwrites the known quota with the block reported by the server.
func (g *Governor) Update(s State) {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
}

// Wait blocks until the next call may be issued.
func (g *Governor) Wait(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("Wait: nil context")
	}
	if g == nil {
		return fmt.Errorf("Wait: nil Governor")
	}

	g.mu.Lock()
	state := g.state
	now := g.now()
	g.mu.Unlock()

	if d := Delay(state, now, g.buffer); d > 0 {
		g.logger.Info("GitHub quota low, pausing until reset",
			"remaining", state.Remaining,
			"cost", state.Cost,
			"reset_at", state.ResetAt.Format(time.RFC3339),
			"pause", d.Round(time.Second).String())
		if err := g.sleep(ctx, d+g.spacing); err != nil {
			return err
		}
	}

	if g.limiter == nil {
		return nil
	}
	return g.limiter.Wait(ctx)
}

// Backoff sleeps one spacing interval regardless of when the last call
// started. Walks call it after a failed call, before retrying.
func (g *Governor) Backoff(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("Backoff: nil context")
	}
	if g == nil {
		return fmt.Errorf("Backoff: nil Governor")
	}
	if g.spacing <= 0 {
		return nil
	}
	return g.sleep(ctx, g.spacing)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
