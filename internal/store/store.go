// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists canonical paper records in a SQL database. It backs
// the local-store leg of search fan-out, the detail resolver's fallbacks, and
// the enrichment pipeline's writes. SQLite is the default; PostgreSQL serves
// shared deployments.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// DefaultDSN is the SQLite file used when no DSN is configured.
const DefaultDSN = "paper-radar.db"

// SQLStore reads and writes the papers table.
type SQLStore struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// Open connects to the configured database and creates the schema if it
// does not exist.
func Open(cfg types.StoreConfig) (*SQLStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	dsn := cfg.DSN

	switch driver {
	case DriverSQLite:
		if dsn == "" {
			dsn = DefaultDSN
		}
		if dir := filepath.Dir(dsn); dir != "." && dir != "" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000"
		}
	case DriverPostgres:
		if dsn == "" {
			return nil, errors.New("postgres store requires a DSN")
		}
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &SQLStore{db: db, driver: driver, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			provider_id TEXT,
			source TEXT NOT NULL,
			title TEXT NOT NULL,
			abstract TEXT,
			pdf_url TEXT,
			code_url TEXT,
			year INTEGER,
			citations INTEGER,
			analyzed BOOLEAN NOT NULL DEFAULT FALSE,
			metadata TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_provider_id ON papers(provider_id)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_citations ON papers(citations)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders as $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const paperColumns = `id, provider_id, source, title, abstract, pdf_url, code_url, year, citations, analyzed, metadata`

// Upsert inserts r or replaces the row with the same id. A record without an
// id gets a random UUID, written back into r.
func (s *SQLStore) Upsert(ctx context.Context, r *types.ResearchResult) error {
	if r == nil {
		return errors.New("upsert: nil record")
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	meta, err := json.Marshal(r.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata for %s: %w", r.ID, err)
	}

	query := s.rebind(`INSERT INTO papers (` + paperColumns + `, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			provider_id = excluded.provider_id,
			source = excluded.source,
			title = excluded.title,
			abstract = excluded.abstract,
			pdf_url = excluded.pdf_url,
			code_url = excluded.code_url,
			year = excluded.year,
			citations = excluded.citations,
			analyzed = excluded.analyzed,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`)

	_, err = s.db.ExecContext(ctx, query,
		r.ID,
		nullable(r.Metadata.ProviderID),
		r.Metadata.Source,
		r.Title,
		nullablePtr(r.Abstract),
		r.PDFURL,
		nullablePtr(r.CodeURL),
		r.Metadata.Year,
		r.Metadata.Citations,
		r.Metadata.Analyzed,
		string(meta),
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting paper %s: %w", r.ID, err)
	}
	return nil
}

// Get returns the record with primary key id, or nil when absent.
func (s *SQLStore) Get(ctx context.Context, id string) (*types.ResearchResult, error) {
	return s.queryOne(ctx, `SELECT `+paperColumns+` FROM papers WHERE id = ?`, id)
}

// GetByProviderID returns the most recently updated record whose embedded
// provider id matches, or nil when absent.
func (s *SQLStore) GetByProviderID(ctx context.Context, providerID string) (*types.ResearchResult, error) {
	return s.queryOne(ctx,
		`SELECT `+paperColumns+` FROM papers WHERE provider_id = ? ORDER BY updated_at DESC LIMIT 1`, providerID)
}

// Search matches query case-insensitively against title and abstract and
// orders matches by citation count.
func (s *SQLStore) Search(ctx context.Context, query string, offset, limit int) ([]types.ResearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"

	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT `+paperColumns+` FROM papers
		WHERE LOWER(title) LIKE ? ESCAPE '\' OR LOWER(COALESCE(abstract, '')) LIKE ? ESCAPE '\'
		ORDER BY citations DESC, title ASC
		LIMIT ? OFFSET ?`), pattern, pattern, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("searching papers: %w", err)
	}
	defer rows.Close()

	var results []types.ResearchResult
	for rows.Next() {
		r, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating papers: %w", err)
	}
	return results, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *SQLStore) queryOne(ctx context.Context, query string, arg string) (*types.ResearchResult, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(query), arg)
	r, err := scanPaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPaper(sc scanner) (*types.ResearchResult, error) {
	var (
		r                          types.ResearchResult
		providerID, abstract, code sql.NullString
		pdfURL                     sql.NullString
		year, citations            sql.NullInt64
		analyzed                   bool
		meta                       string
	)
	if err := sc.Scan(&r.ID, &providerID, &r.Metadata.Source, &r.Title, &abstract, &pdfURL, &code,
		&year, &citations, &analyzed, &meta); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning paper: %w", err)
	}

	source := r.Metadata.Source
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata for %s: %w", r.ID, err)
		}
	}
	// Column values are authoritative over the JSON copy.
	r.Metadata.Source = source
	r.Metadata.ProviderID = providerID.String
	r.Metadata.Year = int(year.Int64)
	r.Metadata.Citations = int(citations.Int64)
	r.Metadata.Analyzed = analyzed
	r.PDFURL = pdfURL.String
	if abstract.Valid {
		r.Abstract = types.OptionalString(abstract.String)
	}
	if code.Valid {
		r.CodeURL = types.OptionalString(code.String)
	}
	return &r, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullablePtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return nullable(*s)
}
