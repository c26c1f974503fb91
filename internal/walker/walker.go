package walker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	gh "ghindexer/internal/github"
	"ghindexer/internal/quota"
)

// MaxRetries is the number of consecutive transient failures tolerated by a
// single walk. The next failure is fatal.
const MaxRetries = 3

type Edge[N any] struct {
	Cursor string
	Node   N
}

// Page is one response of a cursor-paginated connection.
type Page[N any] struct {
	Quota      quota.State
	TotalCount int
	Edges      []Edge[N]
}

// FetchFunc requests up to first nodes after cursor. An empty cursor
// requests the first page.
type FetchFunc[N any] func(ctx context.Context, cursor string, first int) (Page[N], error)

// VisitFunc receives nodes in page order. Returning false stops the walk
// without requesting further pages.
type VisitFunc[N any] func(node N) (bool, error)

// RetryError is returned when a walk exceeds MaxRetries consecutive
// transient failures.
type RetryError struct {
	Walk     string
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("%s: giving up after %d consecutive failures: %v", e.Walk, e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error { return e.Err }

// Result summarizes a completed walk.
type Result struct {
	Calls    int
	Received int
	Total    int
	// Stopped is set when the visitor reported the caught-up boundary.
	Stopped bool
	// NotFound is set when the parent entity no longer resolves remotely.
	NotFound bool
}

// Walker drives the pagination of one connection for one parent entity.
// A Walker must not be shared between parents or kinds.
type Walker[N any] struct {
	Name         string
	Fetch        FetchFunc[N]
	Governor     *quota.Governor
	MaxIncrement int
	Logger       *slog.Logger

	retries int
	now     func() time.Time
}

func (w *Walker[N]) Walk(ctx context.Context, visit VisitFunc[N]) (Result, error) {
	var res Result
	if ctx == nil {
		return res, fmt.Errorf("Walk: nil context")
	}
	if w == nil {
		return res, fmt.Errorf("Walk: nil Walker")
	}
	if w.Fetch == nil {
		return res, fmt.Errorf("Walk %s: nil fetch function", w.Name)
	}
	if w.Governor == nil {
		return res, fmt.Errorf("Walk %s: nil governor (use quota.NewGovernor)", w.Name)
	}
	if visit == nil {
		return res, fmt.Errorf("Walk %s: nil visitor", w.Name)
	}

	logger := w.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := w.now
	if now == nil {
		now = time.Now
	}
	maxIncrement := w.MaxIncrement
	if maxIncrement < 1 {
		maxIncrement = 1
	}

	cursor := ""
	increment := maxIncrement
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := w.Governor.Wait(ctx); err != nil {
			return res, err
		}

		start := now()
		page, err := w.Fetch(ctx, cursor, increment)
		res.Calls++
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			if errors.Is(err, gh.ErrNotFound) {
				logger.Warn("parent does not exist or no permission, skipping", "walk", w.Name, "error", err)
				res.NotFound = true
				return res, nil
			}
			w.retries++
			if w.retries > MaxRetries {
				logger.Error("too many consecutive GitHub errors", "walk", w.Name, "attempts", w.retries, "error", err)
				return res, &RetryError{Walk: w.Name, Attempts: w.retries, Err: err}
			}
			logger.Warn("GitHub call failed, retrying", "walk", w.Name, "attempt", w.retries, "max_retries", MaxRetries, "error", err)
			if err := w.Governor.Backoff(ctx); err != nil {
				return res, err
			}
			continue
		}
		w.retries = 0
		if page.Quota != (quota.State{}) {
			w.Governor.Update(page.Quota)
		}

		res.Total = page.TotalCount
		res.Received += len(page.Edges)

		for _, e := range page.Edges {
			more, err := visit(e.Node)
			if err != nil {
				return res, err
			}
			if !more {
				res.Stopped = true
				break
			}
			cursor = e.Cursor
		}

		next := NextIncrement(res.Received, page.TotalCount, maxIncrement)
		attrs := []any{
			"walk", w.Name,
			"received", res.Received,
			"total", page.TotalCount,
			"next", next,
			"quota_remaining", page.Quota.Remaining,
		}
		if elapsed := now().Sub(start); elapsed > 0 && len(page.Edges) > 0 {
			attrs = append(attrs, "nodes_per_sec", int(float64(len(page.Edges))/elapsed.Seconds()))
		}
		logger.Debug("page fetched", attrs...)

		if res.Stopped || len(page.Edges) == 0 || next == 0 {
			return res, nil
		}
		increment = next
	}
}
