// Package index is the sink the indexer writes to: named collections of JSON
// documents keyed by id, each scoped to a parent and searchable by the text
// fields of its kind.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"ghindexer/internal/model"
)

var (
	ErrNoCollection     = errors.New("index: collection does not exist")
	ErrCollectionExists = errors.New("index: collection already exists")
)

// Document is one indexed record. Text holds the kind's full-text fields
// and is only populated on write.
type Document struct {
	ID        string
	ParentID  string
	UpdatedAt time.Time
	Active    *bool
	Body      json.RawMessage
	Text      map[string]string
}

// Query filters Documents. Results are ordered by UpdatedAt descending.
type Query struct {
	ParentID   string
	ActiveOnly bool
	Limit      int
}

type Store interface {
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, name string, kind model.Kind) error
	Drop(ctx context.Context, name string) error
	Truncate(ctx context.Context, name string) error
	// MostRecent returns the document of parentID with the greatest
	// UpdatedAt, or nil when the parent has none.
	MostRecent(ctx context.Context, name, parentID string) (*Document, error)
	BulkUpsert(ctx context.Context, name string, docs []Document) error
	Documents(ctx context.Context, name string, q Query) ([]Document, error)
	Search(ctx context.Context, name, text string, limit int) ([]Document, error)
	Close() error
}

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Open connects to the configured backend. For sqlite the dsn is a file
// path; for postgres a connection string or URL.
func Open(ctx context.Context, backend, dsn string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendSQLite, "":
		return OpenSQLite(ctx, dsn)
	case BackendPostgres, "postgresql":
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown index backend %q (must be one of: sqlite, postgres)", backend)
	}
}

// NewDocument converts a record for writing.
func NewDocument(r model.Record) (Document, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return Document{}, fmt.Errorf("encode %s: %w", r.RecordID(), err)
	}
	d := Document{
		ID:        r.RecordID(),
		ParentID:  r.ParentID(),
		UpdatedAt: r.RecordUpdatedAt().UTC(),
		Body:      body,
		Text:      r.SearchFields(),
	}
	if repo, ok := r.(model.Repository); ok {
		active := repo.Active
		d.Active = &active
	}
	return d, nil
}

// NewDocuments converts a batch of records.
func NewDocuments[R model.Record](records []R) ([]Document, error) {
	docs := make([]Document, 0, len(records))
	for _, r := range records {
		d, err := NewDocument(r)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// Decode unmarshals document bodies into records.
func Decode[R any](docs []Document) ([]R, error) {
	out := make([]R, 0, len(docs))
	for _, d := range docs {
		var r R
		if err := json.Unmarshal(d.Body, &r); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", d.ID, err)
		}
		out = append(out, r)
	}
	return out, nil
}

var validName = regexp.MustCompile(`^[a-z0-9_][a-z0-9_.-]*$`)

// CheckName rejects collection names that are not lower case.
func CheckName(name string) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("invalid collection name %q (lower case letters, digits, '_', '.', '-')", name)
	}
	return nil
}

// quoteIdent double-quotes an identifier already accepted by CheckName.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
