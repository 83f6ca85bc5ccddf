// ABOUTME: SQLite-backed document store for scraped content, keyed by ULID
// ABOUTME: and queryable by the research query that produced each document.
package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/lantern-research/lantern/pipeline"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	doc_id       TEXT PRIMARY KEY,
	query        TEXT NOT NULL,
	url          TEXT NOT NULL,
	content_type TEXT NOT NULL,
	raw_text     TEXT NOT NULL,
	scraped_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_query ON documents(query);
`

// Document is one stored record.
type Document struct {
	ID        string
	Query     string
	URL       string
	Type      pipeline.ContentType
	RawText   string
	ScrapedAt time.Time
}

// Store persists scraped documents in SQLite.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("docstore: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("docstore: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// AddDocuments stores the usable documents from one scrape batch. Failure
// records are skipped; they carry no text worth persisting.
func (s *Store) AddDocuments(ctx context.Context, query string, docs []pipeline.ScrapedContent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("docstore: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (doc_id, query, url, content_type, raw_text, scraped_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(doc_id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("docstore: prepare: %w", err)
	}
	defer stmt.Close()

	for _, doc := range docs {
		if doc.Failed() || doc.RawText == "" {
			continue
		}
		id := ulid.Make().String()
		if _, err := stmt.ExecContext(ctx, id, query, doc.URL, string(doc.Type), doc.RawText, doc.ScrapedAt); err != nil {
			return fmt.Errorf("docstore: insert %s: %w", doc.URL, err)
		}
	}
	return tx.Commit()
}

// Search returns documents whose text or query matches the term, newest
// first. A limit of 0 defaults to 10.
func (s *Store) Search(ctx context.Context, term string, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = 10
	}
	pattern := "%" + term + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_id, query, url, content_type, raw_text, scraped_at
		 FROM documents
		 WHERE raw_text LIKE ? OR query LIKE ?
		 ORDER BY scraped_at DESC
		 LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("docstore: search: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var d Document
		var typ string
		if err := rows.Scan(&d.ID, &d.Query, &d.URL, &typ, &d.RawText, &d.ScrapedAt); err != nil {
			return nil, fmt.Errorf("docstore: scan: %w", err)
		}
		d.Type = pipeline.ContentType(typ)
		out = append(out, d)
	}
	return out, rows.Err()
}

// Count returns the total number of stored documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("docstore: count: %w", err)
	}
	return n, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
