package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ghindexer/internal/model"
	"ghindexer/internal/walker"
)

// Syncer mirrors one child kind for one target.
type Syncer interface {
	Kind() model.Kind
	Sync(ctx context.Context, e *Engine, t Target) (ParentResult, error)
}

var (
	syncerRegistry = make(map[model.Kind]Syncer)
	syncerMu       sync.RWMutex
)

func Register(s Syncer) {
	if s == nil {
		panic("syncer is nil")
	}
	k := s.Kind()
	if k == "" {
		panic("syncer kind is empty")
	}

	syncerMu.Lock()
	defer syncerMu.Unlock()
	if _, exists := syncerRegistry[k]; exists {
		panic(fmt.Sprintf("syncer %s already registered", k))
	}
	syncerRegistry[k] = s
}

func Resolve(kind model.Kind) (Syncer, bool) {
	syncerMu.RLock()
	defer syncerMu.RUnlock()
	s, ok := syncerRegistry[kind]
	return s, ok
}

func List() []Syncer {
	syncerMu.RLock()
	defer syncerMu.RUnlock()

	all := make([]Syncer, 0, len(syncerRegistry))
	for _, s := range syncerRegistry {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Kind() < all[j].Kind()
	})
	return all
}

func init() {
	Register(childSyncer[model.Issue]{
		kind: model.KindIssues,
		repo: Source.Issues,
		stamp: func(r model.Issue, t Target) model.Issue {
			r.Repo, r.Org = t.Repo.Ref(), t.Org
			return r
		},
	})
	Register(childSyncer[model.PullRequest]{
		kind: model.KindPullRequests,
		repo: Source.PullRequests,
		stamp: func(r model.PullRequest, t Target) model.PullRequest {
			r.Repo, r.Org = t.Repo.Ref(), t.Org
			return r
		},
	})
	Register(childSyncer[model.Milestone]{
		kind: model.KindMilestones,
		repo: Source.Milestones,
		stamp: func(r model.Milestone, t Target) model.Milestone {
			r.Repo, r.Org = t.Repo.Ref(), t.Org
			return r
		},
	})
	Register(childSyncer[model.Label]{
		kind: model.KindLabels,
		repo: Source.Labels,
		stamp: func(r model.Label, t Target) model.Label {
			r.Repo, r.Org = t.Repo.Ref(), t.Org
			return r
		},
	})
	Register(childSyncer[model.Project]{
		kind: model.KindProjects,
		repo: Source.RepoProjects,
		org:  Source.OrgProjects,
		stamp: func(r model.Project, t Target) model.Project {
			r.Repo, r.Org = nil, t.Org
			if t.Repo != nil {
				ref := t.Repo.Ref()
				r.Repo = &ref
			}
			return r
		},
	})
}

// childSyncer binds a Source connection to a kind. org is only set for kinds
// that also have organization-owned records.
type childSyncer[R model.Record] struct {
	kind  model.Kind
	repo  func(Source, model.Repository) walker.FetchFunc[R]
	org   func(Source, *model.Owner) walker.FetchFunc[R]
	stamp func(R, Target) R
}

func (s childSyncer[R]) Kind() model.Kind { return s.kind }
