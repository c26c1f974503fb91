package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/shurcooL/githubv4"

	"ghindexer/internal/model"
	"ghindexer/internal/quota"
	"ghindexer/internal/walker"
)

type projectNode struct {
	ID         string
	Number     int
	DatabaseID int64
	URL        string
	Name       string
	Body       string
	State      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ClosedAt   *time.Time
	Columns    struct {
		TotalCount int
		Nodes      []struct {
			ID    string
			Name  string
			Cards count `graphql:"cards(first: 1)"`
		}
	} `graphql:"columns(first: 10)"`
	PendingCards count `graphql:"pendingCards(first: 1)"`
}

func (n projectNode) toModel() model.Project {
	p := model.Project{
		ID:           n.ID,
		Number:       n.Number,
		DatabaseID:   n.DatabaseID,
		URL:          n.URL,
		Name:         n.Name,
		Body:         n.Body,
		State:        n.State,
		CreatedAt:    n.CreatedAt,
		UpdatedAt:    n.UpdatedAt,
		ClosedAt:     n.ClosedAt,
		Columns:      make([]model.ProjectColumn, 0, len(n.Columns.Nodes)),
		ColumnCount:  n.Columns.TotalCount,
		PendingCards: model.Count{TotalCount: n.PendingCards.TotalCount},
	}
	for _, c := range n.Columns.Nodes {
		p.Columns = append(p.Columns, model.ProjectColumn{ID: c.ID, Name: c.Name, Cards: model.Count{TotalCount: c.Cards.TotalCount}})
	}
	return p
}

// RepoProjects pages through the classic projects of repo.
func (f *Fetcher) RepoProjects(repo model.Repository) walker.FetchFunc[model.Project] {
	return func(ctx context.Context, cursor string, first int) (walker.Page[model.Project], error) {
		var q struct {
			RateLimit  quota.State
			Repository struct {
				Projects connection[projectNode] `graphql:"projects(first: $first, after: $after, orderBy: {field: UPDATED_AT, direction: DESC})"`
			} `graphql:"repository(owner: $owner, name: $name)"`
		}
		if err := f.query(ctx, &q, repoVars(repo, cursor, first)); err != nil {
			return walker.Page[model.Project]{}, fmt.Errorf("projects of %s: %w", repo.FullName(), err)
		}
		return toPage(q.RateLimit, q.Repository.Projects, projectNode.toModel), nil
	}
}

// OrgProjects pages through the classic projects owned by org itself. The org
// id is back-filled from the first response.
func (f *Fetcher) OrgProjects(org *model.Owner) walker.FetchFunc[model.Project] {
	return func(ctx context.Context, cursor string, first int) (walker.Page[model.Project], error) {
		if org == nil || org.Login == "" {
			return walker.Page[model.Project]{}, fmt.Errorf("org projects: org login is required")
		}
		var q struct {
			RateLimit    quota.State
			Organization struct {
				ID       string
				Login    string
				Name     string
				URL      string
				Projects connection[projectNode] `graphql:"projects(first: $first, after: $after, orderBy: {field: UPDATED_AT, direction: DESC})"`
			} `graphql:"organization(login: $login)"`
		}
		vars := pageVars(cursor, first)
		vars["login"] = githubv4.String(org.Login)
		if err := f.query(ctx, &q, vars); err != nil {
			return walker.Page[model.Project]{}, fmt.Errorf("projects of %s: %w", org.Login, err)
		}

		o := q.Organization
		backfill(org, o.ID, o.Login, o.Name, o.URL)
		return toPage(q.RateLimit, o.Projects, projectNode.toModel), nil
	}
}
