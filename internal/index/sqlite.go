package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	_ "modernc.org/sqlite" // SQLite driver

	"ghindexer/internal/model"
)

const catalogTable = "ghindexer_collections"

// Fixed width so that text order matches time order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore keeps every collection as a table plus an FTS5 table named
// <collection>_fts in a single database file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path. ":memory:" gives a
// private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if ctx == nil {
		return nil, fmt.Errorf("sqlite: ctx is nil")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite: database path required")
	}

	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}
	// One writer, and an in-memory database lives on a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+catalogTable+` (
		name TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating collection catalog: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) kind(ctx context.Context, name string) (model.Kind, error) {
	if err := CheckName(name); err != nil {
		return "", err
	}
	var kind string
	err := s.db.QueryRowContext(ctx, `SELECT kind FROM `+catalogTable+` WHERE name = ?`, name).Scan(&kind)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNoCollection, name)
	}
	if err != nil {
		return "", fmt.Errorf("looking up collection %s: %w", name, err)
	}
	return model.Kind(kind), nil
}

func (s *SQLiteStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.kind(ctx, name)
	if errors.Is(err, ErrNoCollection) {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLiteStore) Create(ctx context.Context, name string, kind model.Kind) error {
	if err := CheckName(name); err != nil {
		return err
	}
	schema, err := SchemaFor(kind)
	if err != nil {
		return err
	}
	exists, err := s.Exists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrCollectionExists, name)
	}

	table := quoteIdent(name)
	stmts := []string{
		`CREATE TABLE ` + table + ` (
			id TEXT PRIMARY KEY,
			parent_id TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL,
			active INTEGER,
			body TEXT NOT NULL
		)`,
		`CREATE INDEX ` + quoteIdent(name+"_parent_updated") + ` ON ` + table + ` (parent_id, updated_at DESC)`,
		`CREATE VIRTUAL TABLE ` + quoteIdent(name+"_fts") + ` USING fts5(
			id UNINDEXED, ` + strings.Join(schema.TextFields, ", ") + `,
			tokenize='unicode61'
		)`,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create %s: %w", name, err)
	}
	defer tx.Rollback()

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO `+catalogTable+` (name, kind, created_at) VALUES (?, ?, ?)`,
		name, string(kind), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) Drop(ctx context.Context, name string) error {
	if err := CheckName(name); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin drop %s: %w", name, err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DROP TABLE IF EXISTS ` + quoteIdent(name+"_fts"),
		`DROP TABLE IF EXISTS ` + quoteIdent(name),
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("drop %s: %w", name, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+catalogTable+` WHERE name = ?`, name); err != nil {
		return fmt.Errorf("unregister %s: %w", name, err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) Truncate(ctx context.Context, name string) error {
	if _, err := s.kind(ctx, name); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin truncate %s: %w", name, err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM ` + quoteIdent(name+"_fts"),
		`DELETE FROM ` + quoteIdent(name),
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("truncate %s: %w", name, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) MostRecent(ctx context.Context, name, parentID string) (*Document, error) {
	if _, err := s.kind(ctx, name); err != nil {
		return nil, err
	}
	docs, err := s.query(ctx,
		`SELECT id, parent_id, updated_at, active, body FROM `+quoteIdent(name)+`
		WHERE parent_id = ? ORDER BY updated_at DESC, id DESC LIMIT 1`, parentID)
	if err != nil {
		return nil, fmt.Errorf("most recent in %s: %w", name, err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return &docs[0], nil
}

func (s *SQLiteStore) BulkUpsert(ctx context.Context, name string, docs []Document) error {
	kind, err := s.kind(ctx, name)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	schema, err := SchemaFor(kind)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert %s: %w", name, err)
	}
	defer tx.Rollback()

	upsert, err := tx.PrepareContext(ctx, `INSERT INTO `+quoteIdent(name)+` (id, parent_id, updated_at, active, body)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			parent_id = excluded.parent_id,
			updated_at = excluded.updated_at,
			active = excluded.active,
			body = excluded.body`)
	if err != nil {
		return fmt.Errorf("prepare upsert %s: %w", name, err)
	}
	defer upsert.Close()

	fts := quoteIdent(name + "_fts")
	unindex, err := tx.PrepareContext(ctx, `DELETE FROM `+fts+` WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("prepare search delete %s: %w", name, err)
	}
	defer unindex.Close()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(schema.TextFields)+1), ", ")
	reindex, err := tx.PrepareContext(ctx, `INSERT INTO `+fts+` (id, `+strings.Join(schema.TextFields, ", ")+`) VALUES (`+placeholders+`)`)
	if err != nil {
		return fmt.Errorf("prepare search insert %s: %w", name, err)
	}
	defer reindex.Close()

	for _, d := range docs {
		if d.ID == "" {
			return fmt.Errorf("upsert %s: document without id", name)
		}
		if _, err := upsert.ExecContext(ctx, d.ID, d.ParentID, d.UpdatedAt.UTC().Format(sqliteTimeLayout), nullableBool(d.Active), string(d.Body)); err != nil {
			return fmt.Errorf("upsert %s into %s: %w", d.ID, name, err)
		}
		if _, err := unindex.ExecContext(ctx, d.ID); err != nil {
			return fmt.Errorf("unindex %s in %s: %w", d.ID, name, err)
		}
		args := append([]any{d.ID}, schema.textValues(d)...)
		if _, err := reindex.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("index %s in %s: %w", d.ID, name, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Documents(ctx context.Context, name string, q Query) ([]Document, error) {
	if _, err := s.kind(ctx, name); err != nil {
		return nil, err
	}

	stmt := `SELECT id, parent_id, updated_at, active, body FROM ` + quoteIdent(name) + ` WHERE 1 = 1`
	var args []any
	if q.ParentID != "" {
		stmt += ` AND parent_id = ?`
		args = append(args, q.ParentID)
	}
	if q.ActiveOnly {
		stmt += ` AND active = 1`
	}
	stmt += ` ORDER BY updated_at DESC, id`
	if q.Limit > 0 {
		stmt += ` LIMIT ?`
		args = append(args, q.Limit)
	}
	docs, err := s.query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", name, err)
	}
	return docs, nil
}

func (s *SQLiteStore) Search(ctx context.Context, name, text string, limit int) ([]Document, error) {
	if _, err := s.kind(ctx, name); err != nil {
		return nil, err
	}
	match := ftsMatch(text)
	if match == "" {
		return []Document{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	fts := quoteIdent(name + "_fts")
	docs, err := s.query(ctx,
		`SELECT d.id, d.parent_id, d.updated_at, d.active, d.body
		FROM `+fts+` f JOIN `+quoteIdent(name)+` d ON d.id = f.id
		WHERE `+fts+` MATCH ?
		ORDER BY bm25(`+fts+`), d.updated_at DESC
		LIMIT ?`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", name, err)
	}
	return docs, nil
}

func (s *SQLiteStore) query(ctx context.Context, stmt string, args ...any) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var (
			d       Document
			updated string
			active  sql.NullBool
			body    string
		)
		if err := rows.Scan(&d.ID, &d.ParentID, &updated, &active, &body); err != nil {
			return nil, err
		}
		d.UpdatedAt, err = time.Parse(sqliteTimeLayout, updated)
		if err != nil {
			return nil, fmt.Errorf("document %s: bad updated_at %q: %w", d.ID, updated, err)
		}
		if active.Valid {
			v := active.Bool
			d.Active = &v
		}
		d.Body = []byte(body)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func nullableBool(p *bool) any {
	if p == nil {
		return nil
	}
	return *p
}

// ftsMatch turns free text into an FTS5 query matching every term. Terms
// are quoted so punctuation is never parsed as query syntax.
func ftsMatch(text string) string {
	var terms []string
	for _, w := range strings.Fields(text) {
		w = strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if w == "" {
			continue
		}
		terms = append(terms, `"`+strings.ReplaceAll(w, `"`, `""`)+`"`)
	}
	return strings.Join(terms, " AND ")
}
