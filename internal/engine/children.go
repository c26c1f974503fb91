package engine

import (
	"context"
	"fmt"

	"ghindexer/internal/enrich"
	"ghindexer/internal/index"
	"ghindexer/internal/model"
	"ghindexer/internal/output"
	"ghindexer/internal/walker"
)

// SyncKind mirrors one child kind for every active repository, in
// BuildPlan order. The first failing parent aborts the run; collections
// already written stay.
func (e *Engine) SyncKind(ctx context.Context, kind model.Kind, include, exclude []string) error {
	if err := e.check(ctx); err != nil {
		return err
	}
	syncer, ok := Resolve(kind)
	if !ok {
		return fmt.Errorf("no syncer registered for kind %q", kind)
	}

	repos, err := e.activeRepos(ctx)
	if err != nil {
		return err
	}
	repos = FilterRepos(repos, include, exclude)
	if len(repos) == 0 {
		return fmt.Errorf("%w: no active repository matches --include/--exclude", ErrPrecondition)
	}

	plan, err := BuildPlan(kind, repos, e.Collections)
	if err != nil {
		return err
	}

	tally := e.startRun(kind, len(plan))
	for _, t := range plan {
		if err := ctx.Err(); err != nil {
			return e.finishRun(tally, err)
		}
		e.emit(output.Event{Type: output.EventParentStarted, Kind: string(kind), Parent: t.Name(), Collection: t.Collection})

		res, err := syncer.Sync(ctx, e, t)
		finished := output.Event{
			Type:       output.EventParentFinished,
			Kind:       string(kind),
			Parent:     t.Name(),
			Collection: t.Collection,
			Records:    res.Records,
			Calls:      res.Calls,
			NotFound:   res.NotFound,
			DurationMS: res.Duration.Milliseconds(),
		}
		if err != nil {
			finished.Error = describeError(err, false)
			e.emit(finished)
			return e.finishRun(tally, fmt.Errorf("%s %s: %w", kind, t.Name(), err))
		}
		e.emit(finished)
		tally.records += res.Records
	}
	return e.finishRun(tally, nil)
}

// activeRepos reads the repositories flagged active in the index.
func (e *Engine) activeRepos(ctx context.Context) ([]model.Repository, error) {
	ok, err := e.Store.Exists(ctx, e.Collections.Repos)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: collection %s does not exist; run `ghindexer repos` first", ErrPrecondition, e.Collections.Repos)
	}
	docs, err := e.Store.Documents(ctx, e.Collections.Repos, index.Query{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", e.Collections.Repos, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no active repositories; enable some in %s and run `ghindexer repos apply`",
			ErrPrecondition, e.repositoriesPath())
	}
	return index.Decode[model.Repository](docs)
}

// fetchFor picks the connection of t. Org-level connections back-fill org
// from their first response.
func (s childSyncer[R]) fetchFor(src Source, t Target, org *model.Owner) (walker.FetchFunc[R], error) {
	if t.Repo != nil {
		return s.repo(src, *t.Repo), nil
	}
	if s.org == nil {
		return nil, fmt.Errorf("%s has no organization-level records", s.kind)
	}
	return s.org(src, org), nil
}

func (s childSyncer[R]) Sync(ctx context.Context, e *Engine, t Target) (res ParentResult, err error) {
	res.Target = t
	start := e.now()

	org := t.Org
	fetch, err := s.fetchFor(e.Source, t, &org)
	if err != nil {
		return res, err
	}
	if err := e.ensureCollection(ctx, t.Collection, s.kind); err != nil {
		return res, err
	}

	var mark *enrich.Mark
	if s.kind.Incremental() {
		doc, err := e.Store.MostRecent(ctx, t.Collection, t.ParentID())
		if err != nil {
			return res, fmt.Errorf("reading most recent of %s: %w", t.Collection, err)
		}
		if doc != nil {
			mark = enrich.MarkOf(doc.ID, doc.UpdatedAt)
		}
	} else {
		// Full kinds replace the collection contents.
		if err := e.Store.Truncate(ctx, t.Collection); err != nil {
			return res, fmt.Errorf("truncating %s: %w", t.Collection, err)
		}
	}

	repoName := ""
	if t.Repo != nil {
		repoName = t.Repo.Name
	}
	audit, err := output.NewAuditSink(output.AuditPath(e.ConfigDir, string(s.kind), t.Org.Login, repoName), e.Output.RunID())
	if err != nil {
		return res, err
	}
	defer func() {
		if cerr := audit.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing audit trail: %w", cerr)
		}
	}()

	c := &enrich.Collector[R]{
		Enrich: func(r R) R {
			stamped := t
			stamped.Org = org
			return s.stamp(r, stamped)
		},
		Mark:   mark,
		Audit:  audit,
	}
	wr, err := walk(ctx, e, string(s.kind)+" "+t.Name(), fetch, c)
	res.Calls, res.Received, res.NotFound, res.Stopped = wr.Calls, wr.Received, wr.NotFound, wr.Stopped
	if err != nil {
		return res, err
	}

	records := c.Records()
	if err := upsert(ctx, e, s.kind, t.Name(), t.Collection, records); err != nil {
		return res, err
	}
	res.Records = len(records)
	res.Duration = e.now().Sub(start)

	attrs := []any{"kind", s.kind, "parent", t.Name(), "collection", t.Collection, "records", res.Records, "calls", res.Calls}
	if mark != nil {
		attrs = append(attrs, "since", mark.UpdatedAt)
	}
	e.Logger.Info("synced", attrs...)
	return res, nil
}
