package model

import "time"

type Repository struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	URL          string     `json:"url"`
	DatabaseID   int64      `json:"databaseId"`
	DiskUsage    int        `json:"diskUsage"`
	ForkCount    int        `json:"forkCount"`
	IsPrivate    bool       `json:"isPrivate"`
	IsArchived   bool       `json:"isArchived"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	Owner        Owner      `json:"owner"`
	Issues       Count      `json:"issues"`
	Labels       Count      `json:"labels"`
	Milestones   Count      `json:"milestones"`
	PullRequests Count      `json:"pullRequests"`
	Releases     Count      `json:"releases"`
	Projects     Count      `json:"projects"`
	LatestIssue  *NodeStamp `json:"latestIssue,omitempty"`
	Org          Owner      `json:"org"`
	Active       bool       `json:"active"`
}

// NodeStamp identifies a node by id and last update.
type NodeStamp struct {
	ID        string    `json:"id"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (r Repository) RecordID() string           { return r.ID }
func (r Repository) RecordUpdatedAt() time.Time { return r.UpdatedAt }
func (r Repository) ParentID() string           { return r.Org.ID }

func (r Repository) SearchFields() map[string]string {
	return map[string]string{"name": r.Name, "owner": r.Org.Login}
}

// FullName returns ORG/REPO using the login of the org the repository was
// discovered under.
func (r Repository) FullName() string {
	return r.Org.Login + "/" + r.Name
}

func (r Repository) Ref() RepoRef {
	return RepoRef{ID: r.ID, Name: r.Name, URL: r.URL, DatabaseID: r.DatabaseID}
}

type Actor struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	URL       string `json:"url,omitempty"`
}

type User struct {
	ID        string `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	URL       string `json:"url,omitempty"`
}

type LabelSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description,omitempty"`
}

type MilestoneSummary struct {
	ID          string     `json:"id"`
	Number      int        `json:"number"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	State       string     `json:"state"`
	URL         string     `json:"url"`
	DueOn       *time.Time `json:"dueOn,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	ClosedAt    *time.Time `json:"closedAt,omitempty"`
	Issues      Count      `json:"issues"`
}

// IssueLink is the issue or pull request at either end of a cross reference.
type IssueLink struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
	URL    string `json:"url"`
}

type CrossReference struct {
	ID                string     `json:"id"`
	CreatedAt         time.Time  `json:"createdAt"`
	ReferencedAt      time.Time  `json:"referencedAt"`
	ResourcePath      string     `json:"resourcePath"`
	URL               string     `json:"url"`
	IsCrossRepository bool       `json:"isCrossRepository"`
	WillCloseTarget   bool       `json:"willCloseTarget"`
	Source            *IssueLink `json:"source,omitempty"`
	Target            *IssueLink `json:"target,omitempty"`
}

type ProjectCard struct {
	ID          string `json:"id"`
	ProjectID   string `json:"projectId,omitempty"`
	ProjectName string `json:"projectName,omitempty"`
	ProjectURL  string `json:"projectUrl,omitempty"`
	ColumnID    string `json:"columnId,omitempty"`
	ColumnName  string `json:"columnName,omitempty"`
}

type Issue struct {
	ID              string            `json:"id"`
	Number          int               `json:"number"`
	DatabaseID      int64             `json:"databaseId"`
	URL             string            `json:"url"`
	Title           string            `json:"title"`
	Body            string            `json:"body"`
	State           string            `json:"state"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
	ClosedAt        *time.Time        `json:"closedAt,omitempty"`
	Author          *Actor            `json:"author,omitempty"`
	Labels          []LabelSummary    `json:"labels"`
	LabelCount      int               `json:"labelCount"`
	Milestone       *MilestoneSummary `json:"milestone,omitempty"`
	Assignees       []User            `json:"assignees"`
	AssigneeCount   int               `json:"assigneeCount"`
	Comments        Count             `json:"comments"`
	Participants    Count             `json:"participants"`
	CrossReferences []CrossReference  `json:"crossReferences"`
	ProjectCards    []ProjectCard     `json:"projectCards"`
	Repo            RepoRef           `json:"repo"`
	Org             Owner             `json:"org"`
}

func (i Issue) RecordID() string           { return i.ID }
func (i Issue) RecordUpdatedAt() time.Time { return i.UpdatedAt }
func (i Issue) ParentID() string           { return i.Repo.ID }

func (i Issue) SearchFields() map[string]string {
	return map[string]string{"title": i.Title, "body": i.Body, "author": actorLogin(i.Author)}
}

type PullRequest struct {
	ID             string            `json:"id"`
	Number         int               `json:"number"`
	DatabaseID     int64             `json:"databaseId"`
	URL            string            `json:"url"`
	Title          string            `json:"title"`
	Body           string            `json:"body"`
	State          string            `json:"state"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
	ClosedAt       *time.Time        `json:"closedAt,omitempty"`
	MergedAt       *time.Time        `json:"mergedAt,omitempty"`
	Author         *Actor            `json:"author,omitempty"`
	Labels         []LabelSummary    `json:"labels"`
	LabelCount     int               `json:"labelCount"`
	Milestone      *MilestoneSummary `json:"milestone,omitempty"`
	Assignees      []User            `json:"assignees"`
	AssigneeCount  int               `json:"assigneeCount"`
	Comments       Count             `json:"comments"`
	Participants   Count             `json:"participants"`
	ReviewRequests Count             `json:"reviewRequests"`
	Reviews        Count             `json:"reviews"`
	ProjectCards   []ProjectCard     `json:"projectCards"`
	Repo           RepoRef           `json:"repo"`
	Org            Owner             `json:"org"`
}

func (p PullRequest) RecordID() string           { return p.ID }
func (p PullRequest) RecordUpdatedAt() time.Time { return p.UpdatedAt }
func (p PullRequest) ParentID() string           { return p.Repo.ID }

func (p PullRequest) SearchFields() map[string]string {
	return map[string]string{"title": p.Title, "body": p.Body, "author": actorLogin(p.Author)}
}

type Milestone struct {
	ID           string     `json:"id"`
	Number       int        `json:"number"`
	URL          string     `json:"url"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	State        string     `json:"state"`
	DueOn        *time.Time `json:"dueOn,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	ClosedAt     *time.Time `json:"closedAt,omitempty"`
	Issues       Count      `json:"issues"`
	PullRequests Count      `json:"pullRequests"`
	Repo         RepoRef    `json:"repo"`
	Org          Owner      `json:"org"`
}

func (m Milestone) RecordID() string           { return m.ID }
func (m Milestone) RecordUpdatedAt() time.Time { return m.UpdatedAt }
func (m Milestone) ParentID() string           { return m.Repo.ID }

func (m Milestone) SearchFields() map[string]string {
	return map[string]string{"title": m.Title, "description": m.Description}
}

type ProjectColumn struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Cards Count  `json:"cards"`
}

// Project is a classic project board, owned either by a repository or, when
// Repo is nil, by the organization itself.
type Project struct {
	ID           string          `json:"id"`
	Number       int             `json:"number"`
	DatabaseID   int64           `json:"databaseId"`
	URL          string          `json:"url"`
	Name         string          `json:"name"`
	Body         string          `json:"body"`
	State        string          `json:"state"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	ClosedAt     *time.Time      `json:"closedAt,omitempty"`
	Columns      []ProjectColumn `json:"columns"`
	ColumnCount  int             `json:"columnCount"`
	PendingCards Count           `json:"pendingCards"`
	Repo         *RepoRef        `json:"repo,omitempty"`
	Org          Owner           `json:"org"`
}

func (p Project) RecordID() string           { return p.ID }
func (p Project) RecordUpdatedAt() time.Time { return p.UpdatedAt }

func (p Project) ParentID() string {
	if p.Repo != nil {
		return p.Repo.ID
	}
	return p.Org.ID
}

func (p Project) SearchFields() map[string]string {
	return map[string]string{"name": p.Name, "body": p.Body}
}

type Label struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Description string    `json:"description"`
	IsDefault   bool      `json:"isDefault"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Repo        RepoRef   `json:"repo"`
	Org         Owner     `json:"org"`
}

func (l Label) RecordID() string           { return l.ID }
func (l Label) RecordUpdatedAt() time.Time { return l.UpdatedAt }
func (l Label) ParentID() string           { return l.Repo.ID }

func (l Label) SearchFields() map[string]string {
	return map[string]string{"name": l.Name, "description": l.Description}
}

func actorLogin(a *Actor) string {
	if a == nil {
		return ""
	}
	return a.Login
}
