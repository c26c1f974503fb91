package engine

import (
	"testing"

	"ghindexer/internal/config"
	"ghindexer/internal/model"
)

func TestCollectionName(t *testing.T) {
	if got := CollectionName("gh_issues_", "Acme", "Widgets"); got != "gh_issues_acme_widgets" {
		t.Errorf("unexpected repo collection %q", got)
	}
	if got := CollectionName("gh_projects_", "Acme", ""); got != "gh_projects_acme" {
		t.Errorf("unexpected org collection %q", got)
	}
}

func TestBuildPlan_OrdersByOrgThenName(t *testing.T) {
	acme := model.Owner{ID: "O_acme", Login: "acme", Kind: model.OwnerOrganization}
	beta := model.Owner{ID: "O_beta", Login: "beta", Kind: model.OwnerOrganization}
	repos := []model.Repository{
		{ID: "R3", Name: "zeta", Org: beta},
		{ID: "R2", Name: "widgets", Org: acme},
		{ID: "R1", Name: "gadgets", Org: acme},
	}

	plan, err := BuildPlan(model.KindIssues, repos, config.New().Index.Collections)
	if err != nil {
		t.Fatalf("BuildPlan failed: %v", err)
	}
	want := []string{"gh_issues_acme_gadgets", "gh_issues_acme_widgets", "gh_issues_beta_zeta"}
	if len(plan) != len(want) {
		t.Fatalf("expected %d targets, got %d", len(want), len(plan))
	}
	for i, target := range plan {
		if target.Collection != want[i] {
			t.Errorf("target %d: expected %s, got %s", i, want[i], target.Collection)
		}
		if target.Repo == nil || target.ParentID() != target.Repo.ID {
			t.Errorf("target %d: parent id should be the repository id", i)
		}
	}
	if repos[0].Name != "zeta" {
		t.Errorf("BuildPlan must not reorder its input")
	}
	if plan[0].Repo == plan[1].Repo {
		t.Errorf("targets must not share a repository pointer")
	}
}

func TestBuildPlan_ProjectsAddOrgTargets(t *testing.T) {
	acme := model.Owner{ID: "O_acme", Login: "acme", Kind: model.OwnerOrganization}
	octo := model.Owner{ID: "U_octo", Login: "octocat", Kind: model.OwnerUser}
	repos := []model.Repository{
		{ID: "R1", Name: "widgets", Org: acme},
		{ID: "R2", Name: "gadgets", Org: acme},
		{ID: "R3", Name: "dotfiles", Org: octo},
	}

	plan, err := BuildPlan(model.KindProjects, repos, config.New().Index.Collections)
	if err != nil {
		t.Fatalf("BuildPlan failed: %v", err)
	}
	want := []struct {
		name, collection, parent string
	}{
		{"acme", "gh_projects_acme", "O_acme"},
		{"acme/gadgets", "gh_projects_acme_gadgets", "R2"},
		{"acme/widgets", "gh_projects_acme_widgets", "R1"},
		{"octocat/dotfiles", "gh_projects_octocat_dotfiles", "R3"},
	}
	if len(plan) != len(want) {
		t.Fatalf("expected %d targets, got %d", len(want), len(plan))
	}
	for i, w := range want {
		if plan[i].Name() != w.name || plan[i].Collection != w.collection || plan[i].ParentID() != w.parent {
			t.Errorf("target %d: expected %+v, got name=%s collection=%s parent=%s",
				i, w, plan[i].Name(), plan[i].Collection, plan[i].ParentID())
		}
	}
}

func TestBuildPlan_RejectsRepos(t *testing.T) {
	if _, err := BuildPlan(model.KindRepos, nil, config.New().Index.Collections); err == nil {
		t.Fatalf("expected an error for the repos kind")
	}
}
