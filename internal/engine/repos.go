package engine

import (
	"context"
	"errors"
	"fmt"

	"ghindexer/internal/config"
	"ghindexer/internal/index"
	"ghindexer/internal/model"
	"ghindexer/internal/output"
)

func (e *Engine) repositoriesPath() string {
	return config.RepositoriesPath(e.ConfigDir)
}

// SyncRepos discovers repositories, carries their active flag forward from
// the index, upserts them, then rewrites repositories.yml from every indexed
// repository and prints the table.
func (e *Engine) SyncRepos(ctx context.Context, opts RepoOptions) error {
	if err := e.check(ctx); err != nil {
		return err
	}
	collection := e.Collections.Repos
	if err := e.ensureCollection(ctx, collection, model.KindRepos); err != nil {
		return err
	}

	tally := e.startRun(model.KindRepos, 0)
	fetched, err := e.discover(ctx, opts, tally)
	if err != nil {
		return e.finishRun(tally, err)
	}

	indexed, err := e.indexedRepos(ctx)
	if err != nil {
		return e.finishRun(tally, err)
	}
	known := make(map[string]bool, len(indexed))
	for _, r := range indexed {
		known[r.ID] = r.Active
	}
	force := opts.Force || opts.Grab == GrabRepo
	for i := range fetched {
		r := &fetched[i]
		r.Active = known[r.ID]
		if force && !r.Active {
			e.Logger.Info("activating repository", "repository", r.FullName())
			r.Active = true
		}
	}

	if err := upsert(ctx, e, model.KindRepos, "", collection, fetched); err != nil {
		return e.finishRun(tally, err)
	}
	tally.records = len(fetched)

	all, err := e.indexedRepos(ctx)
	if err != nil {
		return e.finishRun(tally, err)
	}
	if err := e.writeRepositories(all); err != nil {
		return e.finishRun(tally, err)
	}
	e.Logger.Info("you can enable/disable repositories in", "path", e.repositoriesPath())
	return e.finishRun(tally, nil)
}

// ApplyRepoConfig sets the active flag of indexed repositories from
// repositories.yml. Repositories missing from the file keep their flag;
// entries naming unknown repositories are reported and skipped.
func (e *Engine) ApplyRepoConfig(ctx context.Context) error {
	if err := e.checkLocal(ctx); err != nil {
		return err
	}
	path := e.repositoriesPath()
	entries, err := config.ReadRepositories(path)
	if errors.Is(err, config.ErrNoRepositoriesFile) {
		return fmt.Errorf("%w: %v; run `ghindexer repos` first", ErrPrecondition, err)
	}
	if err != nil {
		return err
	}
	ok, err := e.Store.Exists(ctx, e.Collections.Repos)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: collection %s does not exist; run `ghindexer repos` first", ErrPrecondition, e.Collections.Repos)
	}

	tally := e.startRun(model.KindRepos, 0)
	repos, err := e.indexedRepos(ctx)
	if err != nil {
		return e.finishRun(tally, err)
	}
	byName := make(map[string]int, len(repos))
	for i, r := range repos {
		byName[r.FullName()] = i
	}

	var changed []model.Repository
	for _, a := range entries {
		i, ok := byName[a.FullName]
		if !ok {
			e.Logger.Warn("not indexed, skipping", "repository", a.FullName, "path", path)
			continue
		}
		r := repos[i]
		if r.Active == a.Active {
			continue
		}
		e.Logger.Info("changing", "repository", r.FullName(), "from", r.Active, "to", a.Active)
		r.Active = a.Active
		repos[i] = r
		changed = append(changed, r)
	}

	if err := upsert(ctx, e, model.KindRepos, "", e.Collections.Repos, changed); err != nil {
		return e.finishRun(tally, err)
	}
	tally.records = len(changed)
	if err := e.printRepos(repos); err != nil {
		return e.finishRun(tally, err)
	}
	return e.finishRun(tally, nil)
}

// indexedRepos reads every repository of the repositories collection,
// sorted by org login then name.
func (e *Engine) indexedRepos(ctx context.Context) ([]model.Repository, error) {
	docs, err := e.Store.Documents(ctx, e.Collections.Repos, index.Query{})
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", e.Collections.Repos, err)
	}
	repos, err := index.Decode[model.Repository](docs)
	if err != nil {
		return nil, err
	}
	SortRepos(repos)
	return repos, nil
}

func (e *Engine) writeRepositories(repos []model.Repository) error {
	entries := make([]config.Activation, 0, len(repos))
	for _, r := range repos {
		entries = append(entries, config.Activation{FullName: r.FullName(), Active: r.Active})
	}
	if err := config.WriteRepositories(e.repositoriesPath(), entries); err != nil {
		return err
	}
	return e.printRepos(repos)
}

func (e *Engine) printRepos(repos []model.Repository) error {
	rows := make([]output.RepoRow, 0, len(repos))
	for _, r := range repos {
		rows = append(rows, output.RepoRow{
			FullName:  r.FullName(),
			Active:    r.Active,
			Private:   r.IsPrivate,
			Archived:  r.IsArchived,
			UpdatedAt: r.UpdatedAt,
		})
	}
	return output.WriteRepoTable(e.Stdout, rows, e.now())
}
