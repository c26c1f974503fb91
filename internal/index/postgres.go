package index

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ghindexer/internal/model"
)

// PostgresStore keeps every collection as a table with a jsonb body and a
// tsvector column for full-text search.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if ctx == nil {
		return nil, fmt.Errorf("postgres: ctx is nil")
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres: dsn required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+catalogTable+` (
		name text PRIMARY KEY,
		kind text NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now()
	)`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating collection catalog: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// pgTable maps a collection name to a table name within the 63 byte
// identifier limit, leaving room for index suffixes.
func pgTable(name string) string {
	if len(name) <= 50 {
		return name
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return fmt.Sprintf("%s_%016x", name[:33], h.Sum64())
}

func pgIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (s *PostgresStore) kind(ctx context.Context, name string) (model.Kind, error) {
	if err := CheckName(name); err != nil {
		return "", err
	}
	var kind string
	err := s.pool.QueryRow(ctx, `SELECT kind FROM `+catalogTable+` WHERE name = $1`, name).Scan(&kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNoCollection, name)
	}
	if err != nil {
		return "", fmt.Errorf("looking up collection %s: %w", name, err)
	}
	return model.Kind(kind), nil
}

func (s *PostgresStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.kind(ctx, name)
	if errors.Is(err, ErrNoCollection) {
		return false, nil
	}
	return err == nil, err
}

func (s *PostgresStore) Create(ctx context.Context, name string, kind model.Kind) error {
	if err := CheckName(name); err != nil {
		return err
	}
	if _, err := SchemaFor(kind); err != nil {
		return err
	}
	exists, err := s.Exists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrCollectionExists, name)
	}

	table := pgTable(name)
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create %s: %w", name, err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range []string{
		`CREATE TABLE ` + pgIdent(table) + ` (
			id text PRIMARY KEY,
			parent_id text NOT NULL DEFAULT '',
			updated_at timestamptz NOT NULL,
			active boolean,
			body jsonb NOT NULL,
			search tsvector
		)`,
		`CREATE INDEX ` + pgIdent(table+"_parent_idx") + ` ON ` + pgIdent(table) + ` (parent_id, updated_at DESC)`,
		`CREATE INDEX ` + pgIdent(table+"_search_idx") + ` ON ` + pgIdent(table) + ` USING gin (search)`,
	} {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
	}
	if _, err := tx.Exec(ctx, `INSERT INTO `+catalogTable+` (name, kind) VALUES ($1, $2)`, name, string(kind)); err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Drop(ctx context.Context, name string) error {
	if err := CheckName(name); err != nil {
		return err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin drop %s: %w", name, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DROP TABLE IF EXISTS `+pgIdent(pgTable(name))); err != nil {
		return fmt.Errorf("drop %s: %w", name, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM `+catalogTable+` WHERE name = $1`, name); err != nil {
		return fmt.Errorf("unregister %s: %w", name, err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Truncate(ctx context.Context, name string) error {
	if _, err := s.kind(ctx, name); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, `TRUNCATE `+pgIdent(pgTable(name))); err != nil {
		return fmt.Errorf("truncate %s: %w", name, err)
	}
	return nil
}

func (s *PostgresStore) MostRecent(ctx context.Context, name, parentID string) (*Document, error) {
	if _, err := s.kind(ctx, name); err != nil {
		return nil, err
	}
	docs, err := s.query(ctx,
		`SELECT id, parent_id, updated_at, active, body FROM `+pgIdent(pgTable(name))+`
		WHERE parent_id = $1 ORDER BY updated_at DESC, id DESC LIMIT 1`, parentID)
	if err != nil {
		return nil, fmt.Errorf("most recent in %s: %w", name, err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return &docs[0], nil
}

func (s *PostgresStore) BulkUpsert(ctx context.Context, name string, docs []Document) error {
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

	stmt := `INSERT INTO ` + pgIdent(pgTable(name)) + ` (id, parent_id, updated_at, active, body, search)
		VALUES ($1, $2, $3, $4, $5, to_tsvector('simple', $6))
		ON CONFLICT (id) DO UPDATE SET
			parent_id = EXCLUDED.parent_id,
			updated_at = EXCLUDED.updated_at,
			active = EXCLUDED.active,
			body = EXCLUDED.body,
			search = EXCLUDED.search`

	batch := &pgx.Batch{}
	for _, d := range docs {
		if d.ID == "" {
			return fmt.Errorf("upsert %s: document without id", name)
		}
		batch.Queue(stmt, d.ID, d.ParentID, d.UpdatedAt.UTC(), d.Active, string(d.Body), searchText(schema, d))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert %s: %w", name, err)
	}
	defer tx.Rollback(ctx)

	results := tx.SendBatch(ctx, batch)
	for _, d := range docs {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("upsert %s into %s: %w", d.ID, name, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("upsert into %s: %w", name, err)
	}
	return tx.Commit(ctx)
}

func searchText(schema Schema, d Document) string {
	parts := make([]string, 0, len(schema.TextFields))
	for _, f := range schema.TextFields {
		if v := strings.TrimSpace(d.Text[f]); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

func (s *PostgresStore) Documents(ctx context.Context, name string, q Query) ([]Document, error) {
	if _, err := s.kind(ctx, name); err != nil {
		return nil, err
	}

	stmt := `SELECT id, parent_id, updated_at, active, body FROM ` + pgIdent(pgTable(name)) + ` WHERE true`
	var args []any
	if q.ParentID != "" {
		args = append(args, q.ParentID)
		stmt += fmt.Sprintf(` AND parent_id = $%d`, len(args))
	}
	if q.ActiveOnly {
		stmt += ` AND active IS TRUE`
	}
	stmt += ` ORDER BY updated_at DESC, id`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		stmt += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	docs, err := s.query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", name, err)
	}
	return docs, nil
}

func (s *PostgresStore) Search(ctx context.Context, name, text string, limit int) ([]Document, error) {
	if _, err := s.kind(ctx, name); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return []Document{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	docs, err := s.query(ctx,
		`SELECT id, parent_id, updated_at, active, body FROM `+pgIdent(pgTable(name))+`
		WHERE search @@ plainto_tsquery('simple', $1)
		ORDER BY ts_rank(search, plainto_tsquery('simple', $1)) DESC, updated_at DESC
		LIMIT $2`, text, limit)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", name, err)
	}
	return docs, nil
}

func (s *PostgresStore) query(ctx context.Context, stmt string, args ...any) ([]Document, error) {
	rows, err := s.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var (
			d       Document
			updated time.Time
			body    []byte
		)
		if err := rows.Scan(&d.ID, &d.ParentID, &updated, &d.Active, &body); err != nil {
			return nil, err
		}
		d.UpdatedAt = updated.UTC()
		d.Body = body
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
