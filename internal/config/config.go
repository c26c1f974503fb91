package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ghindexer/internal/model"
)

const (
	FileName      = "config.yml"
	CacheDirName  = "cache"
	EnvConfigDir  = "GHINDEXER_CONFIG_DIR"
	defaultAppDir = "ghindexer"

	DefaultMaxNodes = 30
	// MaxNodesLimit is the largest page GitHub's GraphQL API accepts.
	MaxNodesLimit = 100
)

type Config struct {
	// MAINTAINER NOTE: fields tagged yaml:"-" are runtime-only and come from
	// CLI flags (see internal/cli/root.go). Everything else round-trips
	// through config.yml.
	GitHub  GitHub  `yaml:"github"`
	Index   Index   `yaml:"index"`
	Fetch   Fetch   `yaml:"fetch"`
	Sync    Sync    `yaml:"-"`
	Output  Output  `yaml:"-"`
	Runtime Runtime `yaml:"-"`
}

type GitHub struct {
	// Token authenticates API calls. Empty falls back to GITHUB_TOKEN and then
	// to the gh CLI (see --token).
	Token string `yaml:"token"`

	// Login is the viewer's login, used for display only (see --login).
	Login string `yaml:"login"`

	// Endpoint is a GitHub Enterprise Server REST base such as
	// https://ghe.example.com/api/v3/. Empty means github.com (see --endpoint).
	Endpoint string `yaml:"endpoint,omitempty"`
}

type Index struct {
	// Backend selects the index store. Allowed values: sqlite, postgres.
	Backend string `yaml:"backend"`

	// DSN is the sqlite file path or the postgres connection string. An empty
	// sqlite DSN resolves to <configDir>/index/ghindexer.db.
	DSN string `yaml:"dsn"`

	Collections Collections `yaml:"collections"`
}

// Collections holds the repositories collection name and the per-kind
// prefixes child collections are named with.
type Collections struct {
	Repos      string `yaml:"repos"`
	Issues     string `yaml:"issues"`
	Labels     string `yaml:"labels"`
	Milestones string `yaml:"milestones"`
	PRs        string `yaml:"prs"`
	Projects   string `yaml:"projects"`
}

type Fetch struct {
	// MaxNodes is the largest page requested from GitHub (1..100).
	MaxNodes int `yaml:"max_nodes"`

	// QuotaBuffer is added to the wait for the quota reset.
	QuotaBuffer time.Duration `yaml:"quota_buffer"`
}

type Sync struct {
	// Grab selects repository discovery for `repos`. Allowed values:
	// affiliated, org, repo.
	Grab string

	// Org is the organization for --grab org and --grab repo (name or URL).
	Org string

	// Repo is the repository name for --grab repo.
	Repo string

	// Force marks every fetched repository active.
	Force bool

	// Include and Exclude filter active repositories by name using path.Match
	// patterns. A pattern containing '/' matches ORG/REPO.
	Include []string
	Exclude []string
}

type Output struct {
	// Emit writes a structured event stream to stdout. Allowed values: json,
	// ndjson.
	Emit []string

	// Report writes a Markdown run report to this path.
	Report string

	NoColor bool
}

type Runtime struct {
	Verbose bool
}

func New() *Config {
	return &Config{
		Index: Index{
			Backend: "sqlite",
			Collections: Collections{
				Repos:      "gh_repos",
				Issues:     "gh_issues_",
				Labels:     "gh_labels_",
				Milestones: "gh_milestones_",
				PRs:        "gh_prs_",
				Projects:   "gh_projects_",
			},
		},
		Fetch: Fetch{
			MaxNodes:    DefaultMaxNodes,
			QuotaBuffer: 10 * time.Second,
		},
		Sync: Sync{
			Grab: "affiliated",
		},
	}
}

// ResolveDir returns the configuration directory: flagValue when set, else
// $GHINDEXER_CONFIG_DIR, else <user config dir>/ghindexer.
func ResolveDir(flagValue string) (string, error) {
	if v := strings.TrimSpace(flagValue); v != "" {
		return filepath.Clean(v), nil
	}
	if v := strings.TrimSpace(os.Getenv(EnvConfigDir)); v != "" {
		return filepath.Clean(v), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config directory: %w", err)
	}
	return filepath.Join(base, defaultAppDir), nil
}

// Load reads <dir>/config.yml over the defaults. A missing file is created
// with the defaults and created is true. The cache directory is ensured.
func Load(dir string) (cfg *Config, created bool, err error) {
	if strings.TrimSpace(dir) == "" {
		return nil, false, errors.New("config directory is required")
	}
	if err := os.MkdirAll(filepath.Join(dir, CacheDirName), 0o755); err != nil {
		return nil, false, fmt.Errorf("creating config directory: %w", err)
	}

	cfg = New()
	path := filepath.Join(dir, FileName)
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := Save(dir, cfg); err != nil {
			return nil, false, err
		}
		return cfg, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, false, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, false, nil
}

// Save writes the file-backed part of cfg to <dir>/config.yml.
func Save(dir string, cfg *Config) error {
	if cfg == nil {
		return errors.New("Save: nil config")
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// CacheDir is where audit trails are appended.
func CacheDir(dir string) string {
	return filepath.Join(dir, CacheDirName)
}

// IndexDSN returns the configured DSN, resolving the sqlite default under dir.
func (c *Config) IndexDSN(dir string) string {
	if c.Index.DSN != "" || c.Index.Backend != "sqlite" {
		return c.Index.DSN
	}
	return filepath.Join(dir, "index", "ghindexer.db")
}

// Prefix returns the collection prefix of a child kind, or the repositories
// collection name for model.KindRepos.
func (c Collections) Prefix(kind model.Kind) string {
	switch kind {
	case model.KindRepos:
		return c.Repos
	case model.KindIssues:
		return c.Issues
	case model.KindLabels:
		return c.Labels
	case model.KindMilestones:
		return c.Milestones
	case model.KindPullRequests:
		return c.PRs
	case model.KindProjects:
		return c.Projects
	default:
		return ""
	}
}

func (c *Config) Validate() error {
	c.Sync.Include = splitCommaList(c.Sync.Include)
	c.Sync.Exclude = splitCommaList(c.Sync.Exclude)

	c.GitHub.Token = strings.TrimSpace(c.GitHub.Token)
	c.GitHub.Login = strings.TrimSpace(c.GitHub.Login)
	c.GitHub.Endpoint = strings.TrimSpace(c.GitHub.Endpoint)
	if c.GitHub.Endpoint != "" {
		u, err := url.Parse(c.GitHub.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid --endpoint value %q: expected an http(s) URL", c.GitHub.Endpoint)
		}
	}

	c.Index.Backend = normalizeEnumValue(c.Index.Backend)
	switch c.Index.Backend {
	case "":
		c.Index.Backend = "sqlite"
	case "sqlite":
	case "postgres", "postgresql":
		c.Index.Backend = "postgres"
		if strings.TrimSpace(c.Index.DSN) == "" {
			return errors.New("--index-dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unsupported --index-backend: %s (must be one of: sqlite, postgres)", c.Index.Backend)
	}

	cols := map[string]*string{
		"repos":      &c.Index.Collections.Repos,
		"issues":     &c.Index.Collections.Issues,
		"labels":     &c.Index.Collections.Labels,
		"milestones": &c.Index.Collections.Milestones,
		"prs":        &c.Index.Collections.PRs,
		"projects":   &c.Index.Collections.Projects,
	}
	for name, v := range cols {
		*v = strings.ToLower(strings.TrimSpace(*v))
		if *v == "" {
			return fmt.Errorf("index.collections.%s must not be empty", name)
		}
	}

	if c.Fetch.MaxNodes < 1 || c.Fetch.MaxNodes > MaxNodesLimit {
		return fmt.Errorf("--max-nodes must be between 1 and %d", MaxNodesLimit)
	}
	if c.Fetch.QuotaBuffer < 0 {
		return errors.New("fetch.quota_buffer must be >= 0")
	}

	c.Sync.Grab = normalizeEnumValue(c.Sync.Grab)
	if c.Sync.Grab == "" {
		c.Sync.Grab = "affiliated"
	}
	if c.Sync.Grab != "affiliated" && c.Sync.Grab != "org" && c.Sync.Grab != "repo" {
		return fmt.Errorf("unsupported --grab: %s (must be one of: affiliated, org, repo)", c.Sync.Grab)
	}
	if c.Sync.Org != "" {
		org, err := normalizeAccountSelector(c.Sync.Org)
		if err != nil {
			return fmt.Errorf("invalid --org value: %w", err)
		}
		c.Sync.Org = org
	}
	c.Sync.Repo = strings.TrimSpace(c.Sync.Repo)

	for _, emit := range c.Output.Emit {
		v := normalizeEnumValue(emit)
		if v != "json" && v != "ndjson" {
			return fmt.Errorf("unsupported --emit value: %q (must be one of: json, ndjson)", emit)
		}
	}

	return nil
}

// ValidateGrab checks the flags required by the selected discovery mode.
func (c *Config) ValidateGrab() error {
	switch c.Sync.Grab {
	case "org":
		if c.Sync.Org == "" {
			return errors.New("--org is required with --grab org")
		}
	case "repo":
		// --org may be omitted when --repo is ORG/REPO or a URL.
		if c.Sync.Repo == "" {
			return errors.New("--repo is required with --grab repo")
		}
	}
	return nil
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func normalizeAccountSelector(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	// Accept a raw account name, or a GitHub URL like:
	//   https://github.com/<name>
	//   https://github.com/orgs/<name>
	//   github.com/<name>
	if strings.HasPrefix(raw, "github.com/") || strings.HasPrefix(raw, "www.github.com/") {
		raw = "https://" + raw
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("%q", raw)
		}
		parts := strings.FieldsFunc(strings.Trim(u.Path, "/"), func(r rune) bool { return r == '/' })
		if len(parts) == 0 {
			return "", fmt.Errorf("%q", raw)
		}
		if parts[0] == "orgs" || parts[0] == "users" {
			if len(parts) < 2 {
				return "", fmt.Errorf("%q", raw)
			}
			return parts[1], nil
		}
		return parts[0], nil
	}

	if strings.Contains(raw, "/") {
		return "", fmt.Errorf("%q", raw)
	}
	return raw, nil
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
