package model

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies a resource collection mirrored from GitHub.
type Kind string

const (
	KindRepos        Kind = "repos"
	KindIssues       Kind = "issues"
	KindLabels       Kind = "labels"
	KindMilestones   Kind = "milestones"
	KindPullRequests Kind = "prs"
	KindProjects     Kind = "projects"
)

var kinds = []Kind{KindRepos, KindIssues, KindLabels, KindMilestones, KindPullRequests, KindProjects}

// Kinds returns every known kind in a stable order.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

func ParseKind(raw string) (Kind, error) {
	v := Kind(strings.ToLower(strings.TrimSpace(raw)))
	switch v {
	case "pullrequests", "pull-requests", "pulls":
		v = KindPullRequests
	}
	for _, k := range kinds {
		if k == v {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown kind %q (must be one of: repos, issues, labels, milestones, prs, projects)", raw)
}

// Incremental reports whether a kind is synced against a high-water mark.
// Labels and repositories are always fetched in full.
func (k Kind) Incremental() bool {
	switch k {
	case KindIssues, KindMilestones, KindPullRequests, KindProjects:
		return true
	default:
		return false
	}
}

// OwnerKind is the GraphQL typename of a repository owner.
type OwnerKind string

const (
	OwnerOrganization OwnerKind = "Organization"
	OwnerUser         OwnerKind = "User"
)

// Owner is an organization or user account that parents repositories.
type Owner struct {
	ID    string    `json:"id"`
	Login string    `json:"login"`
	Name  string    `json:"name,omitempty"`
	URL   string    `json:"url,omitempty"`
	Kind  OwnerKind `json:"kind"`
}

// RepoRef is the repository back-reference stamped on child records.
type RepoRef struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	URL        string `json:"url,omitempty"`
	DatabaseID int64  `json:"databaseId,omitempty"`
}

// Count mirrors a GraphQL connection reduced to its total count.
type Count struct {
	TotalCount int `json:"totalCount"`
}

// Record is implemented by every entity written to the index.
type Record interface {
	RecordID() string
	RecordUpdatedAt() time.Time
	ParentID() string
	SearchFields() map[string]string
}
