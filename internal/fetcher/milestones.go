package fetcher

import (
	"context"
	"fmt"
	"time"

	"ghindexer/internal/model"
	"ghindexer/internal/quota"
	"ghindexer/internal/walker"
)

type milestoneNode struct {
	ID           string
	Number       int
	URL          string
	Title        string
	Description  string
	State        string
	DueOn        *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ClosedAt     *time.Time
	Issues       count `graphql:"issues(first: 1)"`
	PullRequests count `graphql:"pullRequests(first: 1)"`
}

func (n milestoneNode) toModel() model.Milestone {
	return model.Milestone{
		ID:           n.ID,
		Number:       n.Number,
		URL:          n.URL,
		Title:        n.Title,
		Description:  n.Description,
		State:        n.State,
		DueOn:        n.DueOn,
		CreatedAt:    n.CreatedAt,
		UpdatedAt:    n.UpdatedAt,
		ClosedAt:     n.ClosedAt,
		Issues:       model.Count{TotalCount: n.Issues.TotalCount},
		PullRequests: model.Count{TotalCount: n.PullRequests.TotalCount},
	}
}

func (f *Fetcher) Milestones(repo model.Repository) walker.FetchFunc[model.Milestone] {
	return func(ctx context.Context, cursor string, first int) (walker.Page[model.Milestone], error) {
		var q struct {
			RateLimit  quota.State
			Repository struct {
				Milestones connection[milestoneNode] `graphql:"milestones(first: $first, after: $after, orderBy: {field: UPDATED_AT, direction: DESC})"`
			} `graphql:"repository(owner: $owner, name: $name)"`
		}
		if err := f.query(ctx, &q, repoVars(repo, cursor, first)); err != nil {
			return walker.Page[model.Milestone]{}, fmt.Errorf("milestones of %s: %w", repo.FullName(), err)
		}
		return toPage(q.RateLimit, q.Repository.Milestones, milestoneNode.toModel), nil
	}
}
