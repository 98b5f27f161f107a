package region

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/zipmap/internal/fetcher"
)

// Source loads the state → ZIP lookup.
type Source interface {
	Load(ctx context.Context) (Lookup, error)
}

// JSONSource reads the lookup from a JSON object {"State": ["ZIP", ...]}
// at a file path or URL.
type JSONSource struct {
	Fetcher  fetcher.Fetcher
	Location string
}

// Load implements Source.
func (s JSONSource) Load(ctx context.Context) (Lookup, error) {
	m, err := fetcher.FetchJSON[map[string][]string](ctx, s.Fetcher, s.Location)
	if err != nil {
		return nil, err
	}
	return Lookup(*m), nil
}

// CSVSource reads the lookup from a CSV with one row per ZIP code. Rows
// keep their file order within a state; rows missing either column are
// skipped.
type CSVSource struct {
	Fetcher     fetcher.Fetcher
	Location    string
	StateColumn string // default "state"
	ZipColumn   string // default "zipcode"
}

// Load implements Source.
func (s CSVSource) Load(ctx context.Context) (Lookup, error) {
	stateCol := strings.ToLower(s.StateColumn)
	if stateCol == "" {
		stateCol = "state"
	}
	zipCol := strings.ToLower(s.ZipColumn)
	if zipCol == "" {
		zipCol = "zipcode"
	}

	body, err := s.Fetcher.Download(ctx, s.Location)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	lookup := Lookup{}
	skipped := 0
	err = fetcher.ReadCSV(ctx, body, fetcher.CSVOptions{}, func(row map[string]string) error {
		state, zip := row[stateCol], row[zipCol]
		if state == "" || zip == "" {
			skipped++
			return nil
		}
		lookup[state] = append(lookup[state], zip)
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "region: read csv %s", s.Location)
	}
	if skipped > 0 {
		zap.L().Warn("region: skipped incomplete lookup rows",
			zap.String("location", s.Location), zap.Int("rows", skipped))
	}
	return lookup, nil
}

// SourceFor picks a CSV or JSON source from the location's extension.
func SourceFor(f fetcher.Fetcher, location string) Source {
	if strings.EqualFold(filepath.Ext(location), ".csv") {
		return CSVSource{Fetcher: f, Location: location}
	}
	return JSONSource{Fetcher: f, Location: location}
}

// LookupStore is the persistence side of a lookup.
type LookupStore interface {
	LoadLookup(ctx context.Context) (map[string][]string, error)
}

// StoreSource reads the lookup from a database store.
type StoreSource struct {
	Store LookupStore
}

// Load implements Source.
func (s StoreSource) Load(ctx context.Context) (Lookup, error) {
	m, err := s.Store.LoadLookup(ctx)
	if err != nil {
		return nil, err
	}
	return Lookup(m), nil
}

// LoadOrEmpty loads the lookup once. A failure is logged and yields an empty
// lookup, so every zip3 filter matches nothing.
func LoadOrEmpty(ctx context.Context, src Source) Lookup {
	l, err := src.Load(ctx)
	if err != nil {
		zap.L().Error("region: failed to load state-zipcode lookup", zap.Error(err))
		return Lookup{}
	}
	if l == nil {
		l = Lookup{}
	}
	zap.L().Info("region: loaded state-zipcode lookup", zap.Int("states", l.States()))
	return l
}
