package company

import (
	"context"
	"database/sql"
	"regexp"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens a SQLite database at dsn and configures WAL mode.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One writer at a time; the loader holds a single transaction.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	company_id          INTEGER PRIMARY KEY AUTOINCREMENT,
	uen                 TEXT UNIQUE,
	company_name        TEXT NOT NULL,
	website             TEXT,
	hq_country          TEXT,
	industry            TEXT,
	normalized_industry TEXT,
	company_size        TEXT,
	number_of_employees INTEGER,
	is_it_delisted      BOOLEAN NOT NULL DEFAULT FALSE,
	stock_exchange_code TEXT,
	revenue             REAL,
	founding_year       INTEGER,
	products_offered    TEXT,
	services_offered    TEXT,
	meta_description    TEXT,
	created_at          DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_companies_name ON companies (company_name);

CREATE TABLE IF NOT EXISTS company_contacts (
	contact_id         INTEGER PRIMARY KEY AUTOINCREMENT,
	company_id         INTEGER NOT NULL REFERENCES companies (company_id) ON DELETE CASCADE,
	contact_email      TEXT,
	contact_phone      TEXT,
	contact_phone_e164 TEXT,
	source_of_data     TEXT
);

CREATE TABLE IF NOT EXISTS company_socials (
	social_id      INTEGER PRIMARY KEY AUTOINCREMENT,
	company_id     INTEGER NOT NULL REFERENCES companies (company_id) ON DELETE CASCADE,
	platform       TEXT,
	url            TEXT,
	source_of_data TEXT
);

CREATE TABLE IF NOT EXISTS company_keywords (
	keyword_id     INTEGER PRIMARY KEY AUTOINCREMENT,
	company_id     INTEGER NOT NULL REFERENCES companies (company_id) ON DELETE CASCADE,
	keyword        TEXT,
	source_of_data TEXT
);

CREATE INDEX IF NOT EXISTS idx_company_contacts_company ON company_contacts (company_id);
CREATE INDEX IF NOT EXISTS idx_company_socials_company ON company_socials (company_id);
CREATE INDEX IF NOT EXISTS idx_company_keywords_company ON company_keywords (company_id);
`

// Migrate implements Store.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

// Begin implements Store.
func (s *SQLiteStore) Begin(ctx context.Context) (Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin")
	}
	return &txSession{
		q:        sqlQuerier{tx},
		commit:   func(context.Context) error { return tx.Commit() },
		rollback: func(context.Context) error { return tx.Rollback() },
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// GetProfile implements Store.
func (s *SQLiteStore) GetProfile(ctx context.Context, id int64) (*Profile, error) {
	return getProfile(ctx, sqlQuerier{s.db}, id)
}

// SearchCompanies implements Store.
func (s *SQLiteStore) SearchCompanies(ctx context.Context, name string, limit int) ([]Company, error) {
	return searchCompanies(ctx, sqlQuerier{s.db}, name, limit)
}

// Ping implements Store.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// placeholder matches Postgres-style $N parameters. SQLite accepts the
// same numbering as ?N.
var placeholder = regexp.MustCompile(`\$(\d+)`)

func rebind(q string) string {
	return placeholder.ReplaceAllString(q, "?$1")
}

// sqlConn is satisfied by both *sql.DB and *sql.Tx.
type sqlConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlQuerier struct {
	conn sqlConn
}

func (q sqlQuerier) exec(ctx context.Context, query string, args ...any) error {
	_, err := q.conn.ExecContext(ctx, rebind(query), args...)
	return err
}

func (q sqlQuerier) queryRow(ctx context.Context, query string, args ...any) row {
	return q.conn.QueryRowContext(ctx, rebind(query), args...)
}

func (q sqlQuerier) query(ctx context.Context, query string, args ...any) (rows, error) {
	rs, err := q.conn.QueryContext(ctx, rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{rs}, nil
}

// sqlRows adapts *sql.Rows, whose Close returns an error, to rows.
type sqlRows struct {
	*sql.Rows
}

func (r sqlRows) Close() { r.Rows.Close() } //nolint:errcheck
