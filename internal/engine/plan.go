package engine

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"ghindexer/internal/config"
	"ghindexer/internal/model"
)

// Target is one parent of a child sync: a repository, or for org-level
// projects the organization itself (Repo nil).
type Target struct {
	Kind       model.Kind
	Org        model.Owner
	Repo       *model.Repository
	Collection string
}

// Name is ORG/REPO, or the org login for an org-level target.
func (t Target) Name() string {
	if t.Repo == nil {
		return t.Org.Login
	}
	return t.Repo.FullName()
}

// ParentID scopes the high-water mark of the target.
func (t Target) ParentID() string {
	if t.Repo == nil {
		return t.Org.ID
	}
	return t.Repo.ID
}

// CollectionName returns lower(prefix + org + "_" + repo), or lower(prefix +
// org) when repo is empty.
func CollectionName(prefix, org, repo string) string {
	name := prefix + org
	if repo != "" {
		name += "_" + repo
	}
	return strings.ToLower(name)
}

// SortRepos orders repositories by org login then name.
func SortRepos(repos []model.Repository) {
	slices.SortStableFunc(repos, func(a, b model.Repository) int {
		return cmp.Or(cmp.Compare(a.Org.Login, b.Org.Login), cmp.Compare(a.Name, b.Name))
	})
}

// BuildPlan orders the targets of a child sync. Repositories are visited by
// org login then name. For projects, each organization's own board
// collection is planned right before the first repository of that org.
func BuildPlan(kind model.Kind, repos []model.Repository, cols config.Collections) ([]Target, error) {
	prefix := cols.Prefix(kind)
	if prefix == "" || kind == model.KindRepos {
		return nil, fmt.Errorf("BuildPlan: %q is not a child kind", kind)
	}

	sorted := slices.Clone(repos)
	SortRepos(sorted)

	plan := make([]Target, 0, len(sorted))
	seenOrg := make(map[string]bool)
	for i := range sorted {
		r := sorted[i]
		if kind == model.KindProjects && r.Org.Kind == model.OwnerOrganization && !seenOrg[r.Org.Login] {
			seenOrg[r.Org.Login] = true
			plan = append(plan, Target{
				Kind:       kind,
				Org:        r.Org,
				Collection: CollectionName(prefix, r.Org.Login, ""),
			})
		}
		plan = append(plan, Target{
			Kind:       kind,
			Org:        r.Org,
			Repo:       &r,
			Collection: CollectionName(prefix, r.Org.Login, r.Name),
		})
	}
	return plan, nil
}
