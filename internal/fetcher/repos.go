package fetcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shurcooL/githubv4"

	"ghindexer/internal/model"
	"ghindexer/internal/quota"
	"ghindexer/internal/walker"
)

type ownerNode struct {
	Typename string `graphql:"__typename"`
	ID       string
	Login    string
	URL      string
}

type repoNode struct {
	ID         string
	Name       string
	URL        string
	DatabaseID int64
	DiskUsage  int
	ForkCount  int
	IsPrivate  bool
	IsArchived bool
	UpdatedAt  time.Time
	Owner      ownerNode
	Issues     struct {
		TotalCount int
		Nodes      []struct {
			ID        string
			UpdatedAt time.Time
		}
	} `graphql:"issues(first: 1, orderBy: {field: UPDATED_AT, direction: DESC})"`
	Labels       count `graphql:"labels(first: 1)"`
	Milestones   count `graphql:"milestones(first: 1)"`
	PullRequests count `graphql:"pullRequests(first: 1)"`
	Releases     count `graphql:"releases(first: 1)"`
	Projects     count `graphql:"projects(first: 1)"`
}

type orgNode struct {
	ID    string
	Login string
	Name  string
	URL   string
}

func (n repoNode) toModel(org model.Owner) model.Repository {
	r := model.Repository{
		ID:         n.ID,
		Name:       n.Name,
		URL:        n.URL,
		DatabaseID: n.DatabaseID,
		DiskUsage:  n.DiskUsage,
		ForkCount:  n.ForkCount,
		IsPrivate:  n.IsPrivate,
		IsArchived: n.IsArchived,
		UpdatedAt:  n.UpdatedAt,
		Owner: model.Owner{
			ID:    n.Owner.ID,
			Login: n.Owner.Login,
			URL:   n.Owner.URL,
			Kind:  ownerKind(n.Owner.Typename),
		},
		Issues:       model.Count{TotalCount: n.Issues.TotalCount},
		Labels:       model.Count{TotalCount: n.Labels.TotalCount},
		Milestones:   model.Count{TotalCount: n.Milestones.TotalCount},
		PullRequests: model.Count{TotalCount: n.PullRequests.TotalCount},
		Releases:     model.Count{TotalCount: n.Releases.TotalCount},
		Projects:     model.Count{TotalCount: n.Projects.TotalCount},
		Org:          org,
	}
	if len(n.Issues.Nodes) > 0 {
		latest := n.Issues.Nodes[0]
		r.LatestIssue = &model.NodeStamp{ID: latest.ID, UpdatedAt: latest.UpdatedAt}
	}
	return r
}

func ownerKind(typename string) model.OwnerKind {
	if strings.EqualFold(typename, string(model.OwnerUser)) {
		return model.OwnerUser
	}
	return model.OwnerOrganization
}

// backfill copies canonical identity fields into a parent known only by
// login. Fields already set are kept.
func backfill(parent *model.Owner, id, login, name, url string) {
	if parent.ID == "" {
		parent.ID = id
	}
	if parent.Login == "" {
		parent.Login = login
	}
	if parent.Name == "" {
		parent.Name = name
	}
	if parent.URL == "" {
		parent.URL = url
	}
}

// ViewerOrganizations pages through the organizations the viewer belongs to.
func (f *Fetcher) ViewerOrganizations() walker.FetchFunc[model.Owner] {
	return func(ctx context.Context, cursor string, first int) (walker.Page[model.Owner], error) {
		var q struct {
			RateLimit quota.State
			Viewer    struct {
				Organizations connection[orgNode] `graphql:"organizations(first: $first, after: $after)"`
			}
		}
		if err := f.query(ctx, &q, pageVars(cursor, first)); err != nil {
			return walker.Page[model.Owner]{}, fmt.Errorf("viewer organizations: %w", err)
		}
		return toPage(q.RateLimit, q.Viewer.Organizations, func(n orgNode) model.Owner {
			return model.Owner{ID: n.ID, Login: n.Login, Name: n.Name, URL: n.URL, Kind: model.OwnerOrganization}
		}), nil
	}
}

// OrgRepositories pages through the repositories of org. The org identity is
// back-filled from the first response before any repository is converted.
func (f *Fetcher) OrgRepositories(org *model.Owner) walker.FetchFunc[model.Repository] {
	return func(ctx context.Context, cursor string, first int) (walker.Page[model.Repository], error) {
		if org == nil || org.Login == "" {
			return walker.Page[model.Repository]{}, fmt.Errorf("org repositories: org login is required")
		}
		var q struct {
			RateLimit    quota.State
			Organization struct {
				ID           string
				Login        string
				Name         string
				URL          string
				Repositories connection[repoNode] `graphql:"repositories(first: $first, after: $after)"`
			} `graphql:"organization(login: $login)"`
		}
		vars := pageVars(cursor, first)
		vars["login"] = githubv4.String(org.Login)
		if err := f.query(ctx, &q, vars); err != nil {
			return walker.Page[model.Repository]{}, fmt.Errorf("repositories of %s: %w", org.Login, err)
		}

		o := q.Organization
		backfill(org, o.ID, o.Login, o.Name, o.URL)
		org.Kind = model.OwnerOrganization
		return toPage(q.RateLimit, q.Organization.Repositories, func(n repoNode) model.Repository {
			return n.toModel(*org)
		}), nil
	}
}

// ViewerRepositories pages through the repositories the viewer owns or
// collaborates on. Each is attributed to the viewer as a User owner; copies
// also reachable through an organization are resolved by deduplication.
func (f *Fetcher) ViewerRepositories(viewer *model.Owner) walker.FetchFunc[model.Repository] {
	return func(ctx context.Context, cursor string, first int) (walker.Page[model.Repository], error) {
		if viewer == nil {
			return walker.Page[model.Repository]{}, fmt.Errorf("viewer repositories: nil viewer")
		}
		var q struct {
			RateLimit quota.State
			Viewer    struct {
				ID           string
				Login        string
				Name         string
				URL          string
				Repositories connection[repoNode] `graphql:"repositories(first: $first, after: $after)"`
			}
		}
		if err := f.query(ctx, &q, pageVars(cursor, first)); err != nil {
			return walker.Page[model.Repository]{}, fmt.Errorf("viewer repositories: %w", err)
		}

		v := q.Viewer
		backfill(viewer, v.ID, v.Login, v.Name, v.URL)
		viewer.Kind = model.OwnerUser
		return toPage(q.RateLimit, q.Viewer.Repositories, func(n repoNode) model.Repository {
			return n.toModel(*viewer)
		}), nil
	}
}

// Repository fetches a single repository as a one-node page so that it runs
// through the same walker, governor and retry handling as connections. The
// repository is attributed to its owner.
func (f *Fetcher) Repository(owner, name string) walker.FetchFunc[model.Repository] {
	return func(ctx context.Context, _ string, _ int) (walker.Page[model.Repository], error) {
		var q struct {
			RateLimit  quota.State
			Repository repoNode `graphql:"repository(owner: $owner, name: $name)"`
		}
		vars := map[string]any{
			"owner": githubv4.String(owner),
			"name":  githubv4.String(name),
		}
		if err := f.query(ctx, &q, vars); err != nil {
			return walker.Page[model.Repository]{}, fmt.Errorf("repository %s/%s: %w", owner, name, err)
		}

		n := q.Repository
		org := model.Owner{ID: n.Owner.ID, Login: n.Owner.Login, URL: n.Owner.URL, Kind: ownerKind(n.Owner.Typename)}
		return walker.Page[model.Repository]{
			Quota:      q.RateLimit,
			TotalCount: 1,
			Edges:      []walker.Edge[model.Repository]{{Node: n.toModel(org)}},
		}, nil
	}
}
