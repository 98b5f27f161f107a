package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS state_zipcodes (
	state   TEXT NOT NULL,
	zipcode TEXT NOT NULL,
	ord     INTEGER NOT NULL,
	PRIMARY KEY (state, ord)
);

CREATE TABLE IF NOT EXISTS lookup_imports (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	states      INTEGER NOT NULL,
	zipcodes    INTEGER NOT NULL,
	imported_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_lookup_imports_imported_at ON lookup_imports(imported_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ReplaceLookup(ctx context.Context, source string, lookup map[string][]string) (*Import, error) {
	rows, states := lookupRows(lookup)
	imp := &Import{
		ID:         uuid.New().String(),
		Source:     source,
		States:     states,
		Zipcodes:   len(rows),
		ImportedAt: time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM state_zipcodes`); err != nil {
		return nil, eris.Wrap(err, "sqlite: clear lookup")
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO state_zipcodes (state, zipcode, ord) VALUES (?, ?, ?)`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r...); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert zipcode for %v", r[0])
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO lookup_imports (id, source, states, zipcodes, imported_at) VALUES (?, ?, ?, ?, ?)`,
		imp.ID, imp.Source, imp.States, imp.Zipcodes, imp.ImportedAt,
	); err != nil {
		return nil, eris.Wrap(err, "sqlite: record import")
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit")
	}
	return imp, nil
}

func (s *SQLiteStore) LoadLookup(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, zipcode FROM state_zipcodes ORDER BY state, ord`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load lookup")
	}
	defer rows.Close() //nolint:errcheck

	lookup := make(map[string][]string)
	for rows.Next() {
		var state, zip string
		if err := rows.Scan(&state, &zip); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lookup row")
		}
		lookup[state] = append(lookup[state], zip)
	}
	return lookup, eris.Wrap(rows.Err(), "sqlite: iterate lookup")
}

func (s *SQLiteStore) LastImport(ctx context.Context) (*Import, error) {
	var imp Import
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source, states, zipcodes, imported_at FROM lookup_imports ORDER BY imported_at DESC LIMIT 1`,
	).Scan(&imp.ID, &imp.Source, &imp.States, &imp.Zipcodes, &imp.ImportedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: last import")
	}
	return &imp, nil
}
