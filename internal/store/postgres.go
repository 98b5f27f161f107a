package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/zipmap/internal/db"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS state_zipcodes (
	state   TEXT NOT NULL,
	zipcode TEXT NOT NULL,
	ord     INTEGER NOT NULL,
	PRIMARY KEY (state, ord)
);

CREATE TABLE IF NOT EXISTS lookup_imports (
	id          UUID PRIMARY KEY,
	source      TEXT NOT NULL,
	states      INTEGER NOT NULL,
	zipcodes    INTEGER NOT NULL,
	imported_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_lookup_imports_imported_at ON lookup_imports(imported_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
		return nil
	}
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ReplaceLookup(ctx context.Context, source string, lookup map[string][]string) (*Import, error) {
	rows, states := lookupRows(lookup)
	imp := &Import{
		ID:         uuid.New().String(),
		Source:     source,
		States:     states,
		Zipcodes:   len(rows),
		ImportedAt: time.Now().UTC(),
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM state_zipcodes`); err != nil {
		return nil, eris.Wrap(err, "postgres: clear lookup")
	}

	if _, err := db.CopyFrom(ctx, tx, "state_zipcodes", []string{"state", "zipcode", "ord"}, rows); err != nil {
		return nil, eris.Wrap(err, "postgres: copy lookup")
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO lookup_imports (id, source, states, zipcodes, imported_at) VALUES ($1, $2, $3, $4, $5)`,
		imp.ID, imp.Source, imp.States, imp.Zipcodes, imp.ImportedAt,
	); err != nil {
		return nil, eris.Wrap(err, "postgres: record import")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit")
	}
	return imp, nil
}

func (s *PostgresStore) LoadLookup(ctx context.Context) (map[string][]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT state, zipcode FROM state_zipcodes ORDER BY state, ord`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load lookup")
	}
	defer rows.Close()

	lookup := make(map[string][]string)
	for rows.Next() {
		var state, zip string
		if err := rows.Scan(&state, &zip); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lookup row")
		}
		lookup[state] = append(lookup[state], zip)
	}
	return lookup, eris.Wrap(rows.Err(), "postgres: iterate lookup")
}

func (s *PostgresStore) LastImport(ctx context.Context) (*Import, error) {
	var imp Import
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, source, states, zipcodes, imported_at FROM lookup_imports ORDER BY imported_at DESC LIMIT 1`,
	).Scan(&imp.ID, &imp.Source, &imp.States, &imp.Zipcodes, &imp.ImportedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: last import")
	}
	return &imp, nil
}
