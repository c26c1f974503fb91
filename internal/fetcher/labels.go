package fetcher

import (
	"context"
	"fmt"
	"time"

	"ghindexer/internal/model"
	"ghindexer/internal/quota"
	"ghindexer/internal/walker"
)

type labelNode struct {
	ID          string
	Name        string
	Color       string
	Description string
	IsDefault   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (n labelNode) toModel() model.Label {
	return model.Label{
		ID:          n.ID,
		Name:        n.Name,
		Color:       n.Color,
		Description: n.Description,
		IsDefault:   n.IsDefault,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}

// Labels pages through every label of repo. Labels have no update ordering
// and are always fetched in full.
func (f *Fetcher) Labels(repo model.Repository) walker.FetchFunc[model.Label] {
	return func(ctx context.Context, cursor string, first int) (walker.Page[model.Label], error) {
		var q struct {
			RateLimit  quota.State
			Repository struct {
				Labels connection[labelNode] `graphql:"labels(first: $first, after: $after)"`
			} `graphql:"repository(owner: $owner, name: $name)"`
		}
		if err := f.query(ctx, &q, repoVars(repo, cursor, first)); err != nil {
			return walker.Page[model.Label]{}, fmt.Errorf("labels of %s: %w", repo.FullName(), err)
		}
		return toPage(q.RateLimit, q.Repository.Labels, labelNode.toModel), nil
	}
}
