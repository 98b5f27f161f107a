package store

import (
	"context"

	"github.com/rotisserie/eris"
)

// Open returns the store for driver ("sqlite" or "postgres"), migrated and
// ready for use.
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case "sqlite", "":
		s, err = NewSQLite(dsn)
	case "postgres":
		s, err = NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}
