package index

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghindexer/internal/model"
)

var t0 = time.Date(2025, 2, 1, 9, 30, 0, 0, time.UTC)

func issueDoc(t *testing.T, id, repoID, title string, updated time.Time) Document {
	t.Helper()
	d, err := NewDocument(model.Issue{
		ID:        id,
		Title:     title,
		Body:      "body of " + id,
		UpdatedAt: updated,
		Repo:      model.RepoRef{ID: repoID, Name: "widgets"},
	})
	require.NoError(t, err)
	return d
}

// runStoreContract exercises the behaviour every backend must share.
func runStoreContract(t *testing.T, s Store) {
	ctx := context.Background()
	const issues = "gh_issues_acme_widgets"

	t.Run("missing collection", func(t *testing.T) {
		ok, err := s.Exists(ctx, issues)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = s.MostRecent(ctx, issues, "R_1")
		assert.ErrorIs(t, err, ErrNoCollection)
		assert.ErrorIs(t, s.BulkUpsert(ctx, issues, nil), ErrNoCollection)
	})

	t.Run("create", func(t *testing.T) {
		require.NoError(t, s.Create(ctx, issues, model.KindIssues))
		ok, err := s.Exists(ctx, issues)
		require.NoError(t, err)
		assert.True(t, ok)

		assert.ErrorIs(t, s.Create(ctx, issues, model.KindIssues), ErrCollectionExists)
	})

	t.Run("most recent of an empty parent", func(t *testing.T) {
		d, err := s.MostRecent(ctx, issues, "R_1")
		require.NoError(t, err)
		assert.Nil(t, d)
	})

	t.Run("upsert and most recent per parent", func(t *testing.T) {
		docs := []Document{
			issueDoc(t, "I_1", "R_1", "crash on startup", t0),
			issueDoc(t, "I_2", "R_1", "flaky widget test", t0.Add(2*time.Hour)),
			issueDoc(t, "I_3", "R_2", "docs typo", t0.Add(5*time.Hour)),
		}
		require.NoError(t, s.BulkUpsert(ctx, issues, docs))

		d, err := s.MostRecent(ctx, issues, "R_1")
		require.NoError(t, err)
		require.NotNil(t, d)
		assert.Equal(t, "I_2", d.ID)
		assert.True(t, d.UpdatedAt.Equal(t0.Add(2*time.Hour)))

		got, err := Decode[model.Issue]([]Document{*d})
		require.NoError(t, err)
		assert.Equal(t, "flaky widget test", got[0].Title)
	})

	t.Run("upsert replaces by id", func(t *testing.T) {
		require.NoError(t, s.BulkUpsert(ctx, issues, []Document{
			issueDoc(t, "I_1", "R_1", "crash on startup fixed", t0.Add(3*time.Hour)),
		}))

		docs, err := s.Documents(ctx, issues, Query{ParentID: "R_1"})
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "I_1", docs[0].ID)

		hits, err := s.Search(ctx, issues, "fixed", 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "I_1", hits[0].ID)
	})

	t.Run("search", func(t *testing.T) {
		hits, err := s.Search(ctx, issues, "widget", 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "I_2", hits[0].ID)

		hits, err = s.Search(ctx, issues, "   ", 10)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("documents with limit", func(t *testing.T) {
		docs, err := s.Documents(ctx, issues, Query{Limit: 2})
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "I_3", docs[0].ID)
	})

	t.Run("truncate", func(t *testing.T) {
		require.NoError(t, s.Truncate(ctx, issues))
		docs, err := s.Documents(ctx, issues, Query{})
		require.NoError(t, err)
		assert.Empty(t, docs)
		hits, err := s.Search(ctx, issues, "widget", 10)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("active flag on repositories", func(t *testing.T) {
		const repos = "gh_repos"
		require.NoError(t, s.Create(ctx, repos, model.KindRepos))

		org := model.Owner{ID: "O_1", Login: "acme", Kind: model.OwnerOrganization}
		records := []model.Repository{
			{ID: "R_1", Name: "widgets", Org: org, UpdatedAt: t0, Active: true},
			{ID: "R_2", Name: "gadgets", Org: org, UpdatedAt: t0.Add(time.Hour)},
		}
		docs, err := NewDocuments(records)
		require.NoError(t, err)
		require.NoError(t, s.BulkUpsert(ctx, repos, docs))

		active, err := s.Documents(ctx, repos, Query{ActiveOnly: true})
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "R_1", active[0].ID)
		require.NotNil(t, active[0].Active)
		assert.True(t, *active[0].Active)

		all, err := s.Documents(ctx, repos, Query{ParentID: "O_1"})
		require.NoError(t, err)
		decoded, err := Decode[model.Repository](all)
		require.NoError(t, err)
		require.Len(t, decoded, 2)
		assert.Equal(t, "gadgets", decoded[0].Name)
		assert.Equal(t, org, decoded[0].Org)
	})

	t.Run("drop", func(t *testing.T) {
		require.NoError(t, s.Drop(ctx, issues))
		ok, err := s.Exists(ctx, issues)
		require.NoError(t, err)
		assert.False(t, ok)
		require.NoError(t, s.Create(ctx, issues, model.KindIssues), "a dropped collection can be recreated")
	})
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "ghindexer.db")
	s, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	runStoreContract(t, s)
}

func TestSQLiteStore_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ghindexer.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, "gh_labels_acme_widgets", model.KindLabels))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	ok, err := s.Exists(ctx, "gh_labels_acme_widgets")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("GHINDEXER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("GHINDEXER_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Drop(ctx, "gh_issues_acme_widgets")
		_ = s.Drop(ctx, "gh_repos")
		_ = s.Close()
	})
	_ = s.Drop(ctx, "gh_issues_acme_widgets")
	_ = s.Drop(ctx, "gh_repos")

	runStoreContract(t, s)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), "elasticsearch", "http://localhost:9200")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown index backend")
}

func TestCheckName(t *testing.T) {
	for _, ok := range []string{"gh_repos", "gh_issues_acme_my-repo.js", "gh_projects_acme"} {
		assert.NoError(t, CheckName(ok), ok)
	}
	for _, bad := range []string{"", "Gh_Repos", `x"; drop table y`, "a b"} {
		assert.Error(t, CheckName(bad), bad)
	}
}

func TestPgTable(t *testing.T) {
	assert.Equal(t, "gh_repos", pgTable("gh_repos"))

	long := "gh_issues_" + strings.Repeat("a", 39) + "_" + strings.Repeat("b", 60)
	got := pgTable(long)
	assert.Len(t, got, 50)
	assert.NotEqual(t, got, pgTable(long+"c"))
}

func TestFTSMatch(t *testing.T) {
	assert.Equal(t, `"crash" AND "startup"`, ftsMatch("crash, startup!"))
	assert.Equal(t, `"a""b"`, ftsMatch(`a"b`))
	assert.Equal(t, "", ftsMatch(" -- "))
}

func TestNewDocument(t *testing.T) {
	d, err := NewDocument(model.Label{ID: "L_1", Name: "bug", Repo: model.RepoRef{ID: "R_1"}, UpdatedAt: t0})
	require.NoError(t, err)
	assert.Equal(t, "L_1", d.ID)
	assert.Equal(t, "R_1", d.ParentID)
	assert.Nil(t, d.Active)
	assert.Equal(t, "bug", d.Text["name"])
	assert.Contains(t, string(d.Body), `"name":"bug"`)
}
