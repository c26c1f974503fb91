package fetcher

import (
	"context"
	"fmt"

	"github.com/shurcooL/githubv4"

	gh "ghindexer/internal/github"
	"ghindexer/internal/quota"
	"ghindexer/internal/walker"
)

// Fetcher builds the per-kind page functions driven by a walker. Every query
// also selects the rateLimit block so the governor tracks the real quota.
type Fetcher struct {
	client *gh.Client
}

func New(client *gh.Client) *Fetcher {
	return &Fetcher{client: client}
}

func (f *Fetcher) Client() *gh.Client {
	return f.client
}

func (f *Fetcher) query(ctx context.Context, q any, vars map[string]any) error {
	if ctx == nil {
		return fmt.Errorf("query: nil context")
	}
	if f == nil {
		return fmt.Errorf("query: nil Fetcher")
	}
	if f.client == nil || f.client.GraphQL == nil {
		return fmt.Errorf("query: nil GitHub client (use fetcher.New)")
	}
	return f.client.Query(ctx, q, vars)
}

type edge[N any] struct {
	Cursor string
	Node   N
}

type connection[N any] struct {
	TotalCount int
	Edges      []edge[N]
}

type count struct {
	TotalCount int
}

// pageVars returns the pagination variables shared by every connection
// query. A nil after requests the first page.
func pageVars(cursor string, first int) map[string]any {
	var after *githubv4.String
	if cursor != "" {
		after = githubv4.NewString(githubv4.String(cursor))
	}
	return map[string]any{
		"first": githubv4.Int(first),
		"after": after,
	}
}

func toPage[N, R any](rl quota.State, conn connection[N], convert func(N) R) walker.Page[R] {
	page := walker.Page[R]{
		Quota:      rl,
		TotalCount: conn.TotalCount,
		Edges:      make([]walker.Edge[R], 0, len(conn.Edges)),
	}
	for _, e := range conn.Edges {
		page.Edges = append(page.Edges, walker.Edge[R]{Cursor: e.Cursor, Node: convert(e.Node)})
	}
	return page
}

// repoPath returns the owner login and name used to address a repository.
// The owner login wins over the org it was discovered under.
func repoPath(owner, org, name string) (githubv4.String, githubv4.String) {
	if owner == "" {
		owner = org
	}
	return githubv4.String(owner), githubv4.String(name)
}
