package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"ghindexer/internal/config"
	"ghindexer/internal/enrich"
	"ghindexer/internal/index"
	"ghindexer/internal/model"
	"ghindexer/internal/output"
	"ghindexer/internal/quota"
	"ghindexer/internal/walker"
)

// ChunkSize is the number of documents per bulk upsert.
const ChunkSize = 100

// ErrPrecondition marks a run refused before any remote call because local
// state is missing: no repositories collection, no active repository, or no
// repositories.yml.
var ErrPrecondition = errors.New("precondition failed")

// ExitCode maps the error returned by a run to the process exit code.
//
// Exit code contract:
// 0 = success
// 1 = usage, configuration or unexpected error
// 2 = precondition failure
// 3 = GitHub retry ceiling exceeded
func ExitCode(err error) int {
	var retry *walker.RetryError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &retry):
		return 3
	case errors.Is(err, ErrPrecondition):
		return 2
	default:
		return 1
	}
}

// Source is the remote side of a sync. *fetcher.Fetcher implements it.
type Source interface {
	ViewerOrganizations() walker.FetchFunc[model.Owner]
	OrgRepositories(org *model.Owner) walker.FetchFunc[model.Repository]
	ViewerRepositories(viewer *model.Owner) walker.FetchFunc[model.Repository]
	Repository(owner, name string) walker.FetchFunc[model.Repository]
	Issues(repo model.Repository) walker.FetchFunc[model.Issue]
	PullRequests(repo model.Repository) walker.FetchFunc[model.PullRequest]
	Milestones(repo model.Repository) walker.FetchFunc[model.Milestone]
	Labels(repo model.Repository) walker.FetchFunc[model.Label]
	RepoProjects(repo model.Repository) walker.FetchFunc[model.Project]
	OrgProjects(org *model.Owner) walker.FetchFunc[model.Project]
}

// Engine runs sync operations sequentially: one parent, one walk and one
// chunk at a time.
type Engine struct {
	Store    index.Store
	Source   Source
	Governor *quota.Governor
	Output   *output.Manager
	Logger   *slog.Logger
	// Stdout receives the repositories table.
	Stdout   io.Writer

	ConfigDir   string
	Collections config.Collections
	MaxNodes    int
	// Login names the viewer's audit trail during affiliated discovery.
	Login       string

	now func() time.Time
}

func New(cfg *config.Config, configDir string, store index.Store, src Source) *Engine {
	e := &Engine{
		Store:     store,
		Source:    src,
		Governor:  quota.NewGovernor(),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Stdout:    os.Stdout,
		ConfigDir: configDir,
		MaxNodes:  config.DefaultMaxNodes,
		now:       time.Now,
	}
	if cfg != nil {
		e.Collections = cfg.Index.Collections
		e.MaxNodes = cfg.Fetch.MaxNodes
		e.Login = cfg.GitHub.Login
		e.Governor = quota.NewGovernor(quota.WithBuffer(cfg.Fetch.QuotaBuffer))
	}
	return e
}

// check validates the collaborators of a run that talks to GitHub.
func (e *Engine) check(ctx context.Context) error {
	if err := e.checkLocal(ctx); err != nil {
		return err
	}
	if e.Source == nil {
		return fmt.Errorf("engine: nil GitHub source")
	}
	if e.Governor == nil {
		return fmt.Errorf("engine: nil governor (use engine.New)")
	}
	return nil
}

// checkLocal validates the collaborators of a run that only touches the
// index and the config directory.
func (e *Engine) checkLocal(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("engine: nil context")
	}
	if e == nil {
		return fmt.Errorf("engine: nil Engine")
	}
	if e.Store == nil {
		return fmt.Errorf("engine: nil index store")
	}
	if e.Collections.Repos == "" {
		return fmt.Errorf("engine: repositories collection name is empty")
	}
	if e.Logger == nil {
		e.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if e.Output == nil {
		e.Output = output.NewManager(output.NewRunID())
	}
	if e.Stdout == nil {
		e.Stdout = io.Discard
	}
	if e.now == nil {
		e.now = time.Now
	}
	return nil
}

func (e *Engine) emit(ev output.Event) {
	if err := e.Output.Emit(ev); err != nil {
		e.Logger.Warn("writing event", "type", ev.Type, "error", err)
	}
}

// runTally accumulates the run.finished summary.
type runTally struct {
	kind    model.Kind
	start   time.Time
	parents int
	records int
}

func (e *Engine) startRun(kind model.Kind, parents int) *runTally {
	t := &runTally{kind: kind, start: e.now(), parents: parents}
	e.emit(output.Event{Type: output.EventRunStarted, Kind: string(kind), Parents: parents})
	return t
}

func (e *Engine) finishRun(t *runTally, err error) error {
	ev := output.Event{
		Type:       output.EventRunFinished,
		Kind:       string(t.kind),
		Parents:    t.parents,
		Records:    t.records,
		DurationMS: e.now().Sub(t.start).Milliseconds(),
		ExitCode:   ExitCode(err),
	}
	if err != nil {
		ev.Error = describeError(err, false)
	}
	e.emit(ev)
	return err
}

// walk drives one connection into a collector.
func walk[R model.Record](ctx context.Context, e *Engine, name string, fetch walker.FetchFunc[R], c *enrich.Collector[R]) (walker.Result, error) {
	w := &walker.Walker[R]{
		Name:         name,
		Fetch:        fetch,
		Governor:     e.Governor,
		MaxIncrement: e.MaxNodes,
		Logger:       e.Logger,
	}
	return w.Walk(ctx, c.Add)
}

// upsert writes records in chunks of ChunkSize. A failed chunk aborts; the
// chunks before it stay written.
func upsert[R model.Record](ctx context.Context, e *Engine, kind model.Kind, parent, collection string, records []R) error {
	n := 0
	for chunk := range slices.Chunk(records, ChunkSize) {
		n++
		docs, err := index.NewDocuments(chunk)
		if err != nil {
			return fmt.Errorf("encoding chunk %d for %s: %w", n, collection, err)
		}
		if err := e.Store.BulkUpsert(ctx, collection, docs); err != nil {
			return fmt.Errorf("upserting chunk %d into %s: %w", n, collection, err)
		}
		e.Logger.Debug("chunk upserted", "collection", collection, "chunk", n, "records", len(docs))
		e.emit(output.Event{
			Type:       output.EventChunkUpserted,
			Kind:       string(kind),
			Parent:     parent,
			Collection: collection,
			Records:    len(docs),
			Chunk:      n,
		})
	}
	return nil
}

// ensureCollection creates a collection with the kind's schema when it does
// not exist yet.
func (e *Engine) ensureCollection(ctx context.Context, name string, kind model.Kind) error {
	ok, err := e.Store.Exists(ctx, name)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	e.Logger.Info("creating collection", "collection", name, "kind", kind)
	if err := e.Store.Create(ctx, name, kind); err != nil && !errors.Is(err, index.ErrCollectionExists) {
		return err
	}
	return nil
}

// CreateCollection creates name with the schema of kind. With force an
// existing collection is dropped first; without it an existing collection is
// an error.
func (e *Engine) CreateCollection(ctx context.Context, name string, kind model.Kind, force bool) error {
	if ctx == nil {
		return fmt.Errorf("engine: nil context")
	}
	if e == nil || e.Store == nil {
		return fmt.Errorf("engine: nil index store")
	}
	if err := index.CheckName(name); err != nil {
		return err
	}
	if force {
		if err := e.Store.Drop(ctx, name); err != nil {
			return fmt.Errorf("dropping %s: %w", name, err)
		}
	}
	return e.Store.Create(ctx, name, kind)
}
