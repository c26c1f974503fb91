package engine

import "testing"

func TestResolveRepoSelector(t *testing.T) {
	tests := []struct {
		org, repo   string
		owner, name string
		wantErr     bool
	}{
		{org: "acme", repo: "widgets", owner: "acme", name: "widgets"},
		{org: "", repo: "acme/widgets", owner: "acme", name: "widgets"},
		{org: "other", repo: "acme/widgets", owner: "acme", name: "widgets"},
		{repo: "https://github.com/acme/widgets/tree/main", owner: "acme", name: "widgets"},
		{repo: "github.com/acme/widgets.git", owner: "acme", name: "widgets"},
		{repo: "git@github.com:acme/widgets.git", owner: "acme", name: "widgets"},
		{repo: "https://ghe.example.com/acme/widgets", owner: "acme", name: "widgets"},
		{repo: "widgets", wantErr: true},
		{org: "acme", repo: "", wantErr: true},
		{repo: "acme/widgets/extra", wantErr: true},
		{repo: "https://github.com/acme", wantErr: true},
	}
	for _, tt := range tests {
		owner, name, err := resolveRepoSelector(tt.org, tt.repo)
		if tt.wantErr {
			if err == nil {
				t.Errorf("resolveRepoSelector(%q, %q): expected error, got %s/%s", tt.org, tt.repo, owner, name)
			}
			continue
		}
		if err != nil {
			t.Errorf("resolveRepoSelector(%q, %q) failed: %v", tt.org, tt.repo, err)
			continue
		}
		if owner != tt.owner || name != tt.name {
			t.Errorf("resolveRepoSelector(%q, %q) = %s/%s, want %s/%s", tt.org, tt.repo, owner, name, tt.owner, tt.name)
		}
	}
}
