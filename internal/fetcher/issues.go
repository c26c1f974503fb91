package fetcher

import (
	"context"
	"fmt"
	"time"

	"ghindexer/internal/model"
	"ghindexer/internal/quota"
	"ghindexer/internal/walker"
)

type actorNode struct {
	Login     string
	AvatarURL string
	URL       string
}

func (a *actorNode) toModel() *model.Actor {
	if a == nil {
		return nil
	}
	return &model.Actor{Login: a.Login, AvatarURL: a.AvatarURL, URL: a.URL}
}

type labelSummaryNode struct {
	ID          string
	Name        string
	Color       string
	Description string
}

type labelSummaries struct {
	TotalCount int
	Nodes      []labelSummaryNode
}

func (l labelSummaries) toModel() []model.LabelSummary {
	out := make([]model.LabelSummary, 0, len(l.Nodes))
	for _, n := range l.Nodes {
		out = append(out, model.LabelSummary{ID: n.ID, Name: n.Name, Color: n.Color, Description: n.Description})
	}
	return out
}

type milestoneSummaryNode struct {
	ID          string
	Number      int
	Title       string
	Description string
	State       string
	URL         string
	DueOn       *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
	Issues      count `graphql:"issues(first: 1)"`
}

func (m *milestoneSummaryNode) toModel() *model.MilestoneSummary {
	if m == nil {
		return nil
	}
	return &model.MilestoneSummary{
		ID:          m.ID,
		Number:      m.Number,
		Title:       m.Title,
		Description: m.Description,
		State:       m.State,
		URL:         m.URL,
		DueOn:       m.DueOn,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		ClosedAt:    m.ClosedAt,
		Issues:      model.Count{TotalCount: m.Issues.TotalCount},
	}
}

type userNode struct {
	ID        string
	Login     string
	Name      string
	AvatarURL string
	URL       string
}

type users struct {
	TotalCount int
	Nodes      []userNode
}

func (u users) toModel() []model.User {
	out := make([]model.User, 0, len(u.Nodes))
	for _, n := range u.Nodes {
		out = append(out, model.User{ID: n.ID, Login: n.Login, Name: n.Name, AvatarURL: n.AvatarURL, URL: n.URL})
	}
	return out
}

type projectCards struct {
	Nodes []struct {
		ID      string
		Project *struct {
			ID   string
			Name string
			URL  string
		}
		Column *struct {
			ID   string
			Name string
		}
	}
}

func (p projectCards) toModel() []model.ProjectCard {
	out := make([]model.ProjectCard, 0, len(p.Nodes))
	for _, n := range p.Nodes {
		card := model.ProjectCard{ID: n.ID}
		if n.Project != nil {
			card.ProjectID, card.ProjectName, card.ProjectURL = n.Project.ID, n.Project.Name, n.Project.URL
		}
		if n.Column != nil {
			card.ColumnID, card.ColumnName = n.Column.ID, n.Column.Name
		}
		out = append(out, card)
	}
	return out
}

// Issue and PullRequest declare state with different enum types, so the pull
// request side is aliased to keep the selections mergeable.
type referencedSubject struct {
	Typename string `graphql:"__typename"`
	Issue    struct {
		ID     string
		Number int
		Title  string
		State  string
		URL    string
	} `graphql:"... on Issue"`
	PullRequest struct {
		ID        string
		Number    int
		Title     string
		PullState string `graphql:"pullState: state"`
		URL       string
	} `graphql:"... on PullRequest"`
}

func (s *referencedSubject) toModel() *model.IssueLink {
	if s == nil {
		return nil
	}
	switch s.Typename {
	case "Issue":
		i := s.Issue
		return &model.IssueLink{Type: s.Typename, ID: i.ID, Number: i.Number, Title: i.Title, State: i.State, URL: i.URL}
	case "PullRequest":
		p := s.PullRequest
		return &model.IssueLink{Type: s.Typename, ID: p.ID, Number: p.Number, Title: p.Title, State: p.PullState, URL: p.URL}
	default:
		return nil
	}
}

type crossReferenceNode struct {
	ID                string
	CreatedAt         time.Time
	ReferencedAt      time.Time
	ResourcePath      string
	URL               string
	IsCrossRepository bool
	WillCloseTarget   bool
	Source            *referencedSubject
	Target            *referencedSubject
}

type issueNode struct {
	ID            string
	Number        int
	DatabaseID    int64
	URL           string
	Title         string
	Body          string
	State         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ClosedAt      *time.Time
	Author        *actorNode
	Labels        labelSummaries `graphql:"labels(first: 10)"`
	Milestone     *milestoneSummaryNode
	Assignees     users `graphql:"assignees(first: 10)"`
	Comments      count `graphql:"comments(first: 1)"`
	Participants  count `graphql:"participants(first: 1)"`
	TimelineItems struct {
		Nodes []struct {
			CrossReferencedEvent crossReferenceNode `graphql:"... on CrossReferencedEvent"`
		}
	} `graphql:"timelineItems(first: 30, itemTypes: [CROSS_REFERENCED_EVENT])"`
	ProjectCards projectCards `graphql:"projectCards(first: 5)"`
}

func (n issueNode) toModel() model.Issue {
	issue := model.Issue{
		ID:            n.ID,
		Number:        n.Number,
		DatabaseID:    n.DatabaseID,
		URL:           n.URL,
		Title:         n.Title,
		Body:          n.Body,
		State:         n.State,
		CreatedAt:     n.CreatedAt,
		UpdatedAt:     n.UpdatedAt,
		ClosedAt:      n.ClosedAt,
		Author:        n.Author.toModel(),
		Labels:        n.Labels.toModel(),
		LabelCount:    n.Labels.TotalCount,
		Milestone:     n.Milestone.toModel(),
		Assignees:     n.Assignees.toModel(),
		AssigneeCount: n.Assignees.TotalCount,
		Comments:      model.Count{TotalCount: n.Comments.TotalCount},
		Participants:  model.Count{TotalCount: n.Participants.TotalCount},
		ProjectCards:  n.ProjectCards.toModel(),
	}
	issue.CrossReferences = make([]model.CrossReference, 0, len(n.TimelineItems.Nodes))
	for _, item := range n.TimelineItems.Nodes {
		ev := item.CrossReferencedEvent
		if ev.ID == "" {
			continue
		}
		issue.CrossReferences = append(issue.CrossReferences, model.CrossReference{
			ID:                ev.ID,
			CreatedAt:         ev.CreatedAt,
			ReferencedAt:      ev.ReferencedAt,
			ResourcePath:      ev.ResourcePath,
			URL:               ev.URL,
			IsCrossRepository: ev.IsCrossRepository,
			WillCloseTarget:   ev.WillCloseTarget,
			Source:            ev.Source.toModel(),
			Target:            ev.Target.toModel(),
		})
	}
	return issue
}

// Issues pages through the issues of repo, most recently updated first.
func (f *Fetcher) Issues(repo model.Repository) walker.FetchFunc[model.Issue] {
	return func(ctx context.Context, cursor string, first int) (walker.Page[model.Issue], error) {
		var q struct {
			RateLimit  quota.State
			Repository struct {
				Issues connection[issueNode] `graphql:"issues(first: $first, after: $after, orderBy: {field: UPDATED_AT, direction: DESC})"`
			} `graphql:"repository(owner: $owner, name: $name)"`
		}
		if err := f.query(ctx, &q, repoVars(repo, cursor, first)); err != nil {
			return walker.Page[model.Issue]{}, fmt.Errorf("issues of %s: %w", repo.FullName(), err)
		}
		return toPage(q.RateLimit, q.Repository.Issues, issueNode.toModel), nil
	}
}

func repoVars(repo model.Repository, cursor string, first int) map[string]any {
	vars := pageVars(cursor, first)
	vars["owner"], vars["name"] = repoPath(repo.Owner.Login, repo.Org.Login, repo.Name)
	return vars
}
