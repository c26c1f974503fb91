package fetcher

import (
	"context"
	"fmt"
	"time"

	"ghindexer/internal/model"
	"ghindexer/internal/quota"
	"ghindexer/internal/walker"
)

type pullRequestNode struct {
	ID             string
	Number         int
	DatabaseID     int64
	URL            string
	Title          string
	Body           string
	State          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ClosedAt       *time.Time
	MergedAt       *time.Time
	Author         *actorNode
	Labels         labelSummaries `graphql:"labels(first: 10)"`
	Milestone      *milestoneSummaryNode
	Assignees      users        `graphql:"assignees(first: 4)"`
	Comments       count        `graphql:"comments(first: 1)"`
	Participants   count        `graphql:"participants(first: 1)"`
	ReviewRequests count        `graphql:"reviewRequests(first: 1)"`
	Reviews        count        `graphql:"reviews(first: 1)"`
	ProjectCards   projectCards `graphql:"projectCards(first: 5)"`
}

func (n pullRequestNode) toModel() model.PullRequest {
	return model.PullRequest{
		ID:             n.ID,
		Number:         n.Number,
		DatabaseID:     n.DatabaseID,
		URL:            n.URL,
		Title:          n.Title,
		Body:           n.Body,
		State:          n.State,
		CreatedAt:      n.CreatedAt,
		UpdatedAt:      n.UpdatedAt,
		ClosedAt:       n.ClosedAt,
		MergedAt:       n.MergedAt,
		Author:         n.Author.toModel(),
		Labels:         n.Labels.toModel(),
		LabelCount:     n.Labels.TotalCount,
		Milestone:      n.Milestone.toModel(),
		Assignees:      n.Assignees.toModel(),
		AssigneeCount:  n.Assignees.TotalCount,
		Comments:       model.Count{TotalCount: n.Comments.TotalCount},
		Participants:   model.Count{TotalCount: n.Participants.TotalCount},
		ReviewRequests: model.Count{TotalCount: n.ReviewRequests.TotalCount},
		Reviews:        model.Count{TotalCount: n.Reviews.TotalCount},
		ProjectCards:   n.ProjectCards.toModel(),
	}
}

// PullRequests pages through the pull requests of repo, most recently updated
// first.
func (f *Fetcher) PullRequests(repo model.Repository) walker.FetchFunc[model.PullRequest] {
	return func(ctx context.Context, cursor string, first int) (walker.Page[model.PullRequest], error) {
		var q struct {
			RateLimit  quota.State
			Repository struct {
				PullRequests connection[pullRequestNode] `graphql:"pullRequests(first: $first, after: $after, orderBy: {field: UPDATED_AT, direction: DESC})"`
			} `graphql:"repository(owner: $owner, name: $name)"`
		}
		if err := f.query(ctx, &q, repoVars(repo, cursor, first)); err != nil {
			return walker.Page[model.PullRequest]{}, fmt.Errorf("pull requests of %s: %w", repo.FullName(), err)
		}
		return toPage(q.RateLimit, q.Repository.PullRequests, pullRequestNode.toModel), nil
	}
}
