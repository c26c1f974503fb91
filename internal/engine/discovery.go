package engine

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"ghindexer/internal/enrich"
	"ghindexer/internal/model"
	"ghindexer/internal/output"
	"ghindexer/internal/walker"
)

// Discovery modes of `repos --grab`.
const (
	GrabAffiliated = "affiliated"
	GrabOrg        = "org"
	GrabRepo       = "repo"
)

// RepoOptions selects which repositories a repos run discovers.
type RepoOptions struct {
	Grab string
	// Org is the organization login for GrabOrg and GrabRepo.
	Org string
	// Repo is a repository name, ORG/REPO or a GitHub URL for GrabRepo.
	Repo string
	// Force marks every discovered repository active.
	Force bool
}

// discover walks the repositories selected by opts. Each parent (an
// organization, the viewer, or a single repository) is walked separately
// with its own audit trail.
func (e *Engine) discover(ctx context.Context, opts RepoOptions, tally *runTally) ([]model.Repository, error) {
	switch opts.Grab {
	case GrabAffiliated, "":
		return e.discoverAffiliated(ctx, tally)
	case GrabOrg:
		if opts.Org == "" {
			return nil, fmt.Errorf("--org is required with --grab org")
		}
		org := &model.Owner{Login: opts.Org, Kind: model.OwnerOrganization}
		c := &enrich.Collector[model.Repository]{}
		if err := e.walkRepoParent(ctx, tally, org.Login, e.Source.OrgRepositories(org), c); err != nil {
			return nil, err
		}
		return c.Records(), nil
	case GrabRepo:
		owner, name, err := resolveRepoSelector(opts.Org, opts.Repo)
		if err != nil {
			return nil, err
		}
		c := &enrich.Collector[model.Repository]{}
		if err := e.walkRepoParent(ctx, tally, owner+"/"+name, e.Source.Repository(owner, name), c); err != nil {
			return nil, err
		}
		if len(c.Records()) == 0 {
			e.Logger.Warn("repository does not exist or no permission", "repository", owner+"/"+name)
		}
		return c.Records(), nil
	default:
		return nil, fmt.Errorf("unsupported --grab: %s (must be one of: affiliated, org, repo)", opts.Grab)
	}
}

// discoverAffiliated walks every organization of the viewer, then the
// viewer's own repositories. A repository reachable both ways keeps its
// organization-owned copy.
func (e *Engine) discoverAffiliated(ctx context.Context, tally *runTally) ([]model.Repository, error) {
	var orgs []model.Owner
	w := &walker.Walker[model.Owner]{
		Name:         "viewer organizations",
		Fetch:        e.Source.ViewerOrganizations(),
		Governor:     e.Governor,
		MaxIncrement: e.MaxNodes,
		Logger:       e.Logger,
	}
	if _, err := w.Walk(ctx, func(o model.Owner) (bool, error) {
		orgs = append(orgs, o)
		return true, nil
	}); err != nil {
		return nil, err
	}
	e.Logger.Info("found organizations", "count", len(orgs))

	c := &enrich.Collector[model.Repository]{Dedupe: enrich.PreferOrgCopy}
	for i := range orgs {
		org := &orgs[i]
		if err := e.walkRepoParent(ctx, tally, org.Login, e.Source.OrgRepositories(org), c); err != nil {
			return nil, err
		}
	}

	login := e.Login
	if login == "" {
		login = "viewer"
	}
	viewer := &model.Owner{Login: e.Login, Kind: model.OwnerUser}
	if err := e.walkRepoParent(ctx, tally, login, e.Source.ViewerRepositories(viewer), c); err != nil {
		return nil, err
	}

	if st := c.Stats(); st.Replaced+st.Dropped > 0 {
		e.Logger.Debug("resolved duplicate repositories", "replaced", st.Replaced, "dropped", st.Dropped)
	}
	return c.Records(), nil
}

// walkRepoParent walks one repository connection into c, auditing to the
// parent's own trail and emitting parent events.
func (e *Engine) walkRepoParent(ctx context.Context, tally *runTally, parent string, fetch walker.FetchFunc[model.Repository], c *enrich.Collector[model.Repository]) (err error) {
	tally.parents++
	start := e.now()
	collection := e.Collections.Repos
	e.emit(output.Event{Type: output.EventParentStarted, Kind: string(model.KindRepos), Parent: parent, Collection: collection})

	org, repo, _ := strings.Cut(parent, "/")
	audit, err := output.NewAuditSink(output.AuditPath(e.ConfigDir, string(model.KindRepos), org, repo), e.Output.RunID())
	if err != nil {
		return err
	}
	c.Audit = audit
	defer func() {
		c.Audit = nil
		if cerr := audit.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing audit trail: %w", cerr)
		}
	}()

	before := c.Stats().Kept
	res, err := walk(ctx, e, "repositories "+parent, fetch, c)
	finished := output.Event{
		Type:       output.EventParentFinished,
		Kind:       string(model.KindRepos),
		Parent:     parent,
		Collection: collection,
		Records:    c.Stats().Kept - before,
		Calls:      res.Calls,
		NotFound:   res.NotFound,
		DurationMS: e.now().Sub(start).Milliseconds(),
	}
	if err != nil {
		finished.Error = describeError(err, false)
		e.emit(finished)
		return fmt.Errorf("repositories of %s: %w", parent, err)
	}
	e.emit(finished)
	e.Logger.Info("fetched repositories", "parent", parent, "received", res.Received, "total", res.Total,
		"elapsed", e.now().Sub(start).Round(time.Millisecond))
	return nil
}

// resolveRepoSelector accepts --repo as a name (with --org), as ORG/REPO or
// as a GitHub URL.
func resolveRepoSelector(org, repo string) (owner, name string, err error) {
	sel, err := normalizeRepoSelector(repo)
	if err != nil {
		return "", "", err
	}
	if sel == "" {
		return "", "", fmt.Errorf("--repo is required with --grab repo")
	}
	if !strings.Contains(sel, "/") {
		if org == "" {
			return "", "", fmt.Errorf("--org is required when --repo is a bare name")
		}
		sel = org + "/" + sel
	}
	return splitOwnerRepo(sel)
}

func splitOwnerRepo(sel string) (owner string, name string, err error) {
	parts := strings.Split(sel, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid repo selector %q; expected owner/name", sel)
	}
	if parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo selector %q; expected owner/name", sel)
	}
	return parts[0], parts[1], nil
}

func normalizeRepoSelector(sel string) (string, error) {
	sel = strings.TrimSpace(sel)
	if sel == "" {
		return sel, nil
	}

	// Common URL forms:
	// - https://github.com/owner/repo
	// - https://github.com/owner/repo.git
	// - https://github.com/owner/repo/tree/main (we take owner/repo)
	// - github.com/owner/repo
	// - git@github.com:owner/repo.git

	if strings.HasPrefix(sel, "github.com/") || strings.HasPrefix(sel, "www.github.com/") {
		sel = "https://" + sel
	}

	if strings.HasPrefix(sel, "git@") {
		_, rest, ok := strings.Cut(sel, ":")
		if !ok {
			return "", fmt.Errorf("invalid repo selector %q; expected owner/name", sel)
		}
		return ownerRepoFromPath(sel, rest)
	}

	if strings.HasPrefix(sel, "http://") || strings.HasPrefix(sel, "https://") || strings.HasPrefix(sel, "git://") {
		u, err := url.Parse(sel)
		if err != nil {
			return "", fmt.Errorf("invalid repo selector %q; expected owner/name", sel)
		}
		return ownerRepoFromPath(sel, u.Path)
	}

	return sel, nil
}

func ownerRepoFromPath(sel, p string) (string, error) {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) < 2 {
		return "", fmt.Errorf("invalid repo selector %q; expected owner/name", sel)
	}
	owner := parts[0]
	repo := strings.TrimSuffix(parts[1], ".git")
	if owner == "" || repo == "" {
		return "", fmt.Errorf("invalid repo selector %q; expected owner/name", sel)
	}
	return owner + "/" + repo, nil
}
