// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package basket

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/patent-chooser/pkg/types"
)

const (
	driverSQLite   = "sqlite3"
	driverPostgres = "postgres"
	defaultDSN     = "patent-chooser.db"
)

// QueryRecord is one entry of a project's query history.
type QueryRecord struct {
	types.SearchInfo `yaml:",inline"`
	Created          time.Time `json:"created" yaml:"created"`
}

// SQLStore persists projects, basket entries, and query history through
// database/sql. SQLite is the default; PostgreSQL is selected by driver.
type SQLStore struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// NewSQLStore opens the database named by cfg and creates the schema if it
// does not exist.
func NewSQLStore(cfg types.BasketConfig) (*SQLStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = driverSQLite
	}
	if driver != driverSQLite && driver != driverPostgres {
		return nil, fmt.Errorf("unsupported basket driver %q", driver)
	}
	dsn := cfg.DSN
	if dsn == "" {
		dsn = defaultDSN
	}
	if driver == driverSQLite && !strings.Contains(dsn, "?") && !strings.Contains(dsn, ":memory:") {
		dsn += "?_journal_mode=WAL&_foreign_keys=on"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if driver == driverSQLite {
		// One writer; also keeps an in-memory database on a single connection.
		db.SetMaxOpenConns(1)
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
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == driverPostgres {
		serial = "BIGSERIAL PRIMARY KEY"
	}
	statements := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			name TEXT PRIMARY KEY,
			created TEXT NOT NULL,
			modified TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS basket_entries (
			seq ` + serial + `,
			id TEXT NOT NULL UNIQUE,
			project TEXT NOT NULL,
			number TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			title TEXT,
			score INTEGER,
			dismiss INTEGER,
			seen INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_basket_entries_project ON basket_entries(project)`,
		`CREATE TABLE IF NOT EXISTS queries (
			seq ` + serial + `,
			project TEXT NOT NULL,
			datasource TEXT NOT NULL,
			query TEXT NOT NULL,
			result_range TEXT,
			flavor TEXT,
			result_count INTEGER NOT NULL,
			created TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_queries_project ON queries(project)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.driver != driverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// EnsureProject creates the project row if it is missing.
func (s *SQLStore) EnsureProject(ctx context.Context, project string) error {
	now := s.now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO projects (name, created, modified) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO NOTHING`),
		project, now, now)
	if err != nil {
		return fmt.Errorf("creating project %s: %w", project, err)
	}
	return nil
}

// Touch updates the project's modified time, creating the project if needed.
func (s *SQLStore) Touch(ctx context.Context, project string) error {
	now := s.now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO projects (name, created, modified) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET modified=excluded.modified`),
		project, now, now)
	if err != nil {
		return fmt.Errorf("updating project %s: %w", project, err)
	}
	return nil
}

// Entries returns the project's basket entries in insertion order.
func (s *SQLStore) Entries(ctx context.Context, project string) ([]types.BasketEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, number, timestamp, title, score, dismiss, seen
		 FROM basket_entries WHERE project = ? ORDER BY seq`), project)
	if err != nil {
		return nil, fmt.Errorf("querying basket entries: %w", err)
	}
	defer rows.Close()

	var entries []types.BasketEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Fetch loads one entry by id. It returns ErrEntryNotFound when the row is
// missing.
func (s *SQLStore) Fetch(ctx context.Context, project, id string) (types.BasketEntry, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT id, number, timestamp, title, score, dismiss, seen
		 FROM basket_entries WHERE project = ? AND id = ?`), project, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.BasketEntry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	return e, err
}

// Save upserts an entry.
func (s *SQLStore) Save(ctx context.Context, project string, e types.BasketEntry) error {
	var score, dismiss sql.NullInt64
	if e.Score != nil {
		score = sql.NullInt64{Int64: int64(*e.Score), Valid: true}
	}
	if e.Dismiss != nil {
		dismiss = sql.NullInt64{Int64: boolInt(*e.Dismiss), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO basket_entries (id, project, number, timestamp, title, score, dismiss, seen)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			number=excluded.number, timestamp=excluded.timestamp, title=excluded.title,
			score=excluded.score, dismiss=excluded.dismiss, seen=excluded.seen`),
		e.ID, project, e.Number, e.Timestamp.UTC().Format(time.RFC3339Nano), e.Title,
		score, dismiss, boolInt(e.Seen),
	)
	if err != nil {
		return fmt.Errorf("saving basket entry %s: %w", e.Number, err)
	}
	return nil
}

// Destroy deletes an entry. Deleting a missing entry is not an error.
func (s *SQLStore) Destroy(ctx context.Context, project, id string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`DELETE FROM basket_entries WHERE project = ? AND id = ?`), project, id)
	if err != nil {
		return fmt.Errorf("deleting basket entry %s: %w", id, err)
	}
	return nil
}

// RecordQuery appends a search to the project's query history.
func (s *SQLStore) RecordQuery(ctx context.Context, project string, info types.SearchInfo) error {
	if err := s.EnsureProject(ctx, project); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO queries (project, datasource, query, result_range, flavor, result_count, created)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		project, info.Datasource, info.Query, info.Range, info.Flavor, info.ResultCount,
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording query: %w", err)
	}
	return nil
}

// Queries returns the project's query history, oldest first.
func (s *SQLStore) Queries(ctx context.Context, project string) ([]QueryRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT datasource, query, result_range, flavor, result_count, created
		 FROM queries WHERE project = ? ORDER BY seq`), project)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var out []QueryRecord
	for rows.Next() {
		var (
			r             QueryRecord
			rng, flavor   sql.NullString
			createdString string
		)
		if err := rows.Scan(&r.Datasource, &r.Query, &rng, &flavor, &r.ResultCount, &createdString); err != nil {
			return nil, fmt.Errorf("scanning query: %w", err)
		}
		r.Range = rng.String
		r.Flavor = flavor.String
		r.Created, _ = time.Parse(time.RFC3339Nano, createdString)
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (types.BasketEntry, error) {
	var (
		e       types.BasketEntry
		ts      string
		title   sql.NullString
		score   sql.NullInt64
		dismiss sql.NullInt64
		seen    int64
	)
	if err := row.Scan(&e.ID, &e.Number, &ts, &title, &score, &dismiss, &seen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("scanning basket entry: %w", err)
	}
	e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
	e.Title = title.String
	if score.Valid {
		v := int(score.Int64)
		e.Score = &v
	}
	if dismiss.Valid {
		v := dismiss.Int64 != 0
		e.Dismiss = &v
	}
	e.Seen = seen != 0
	return e, nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
