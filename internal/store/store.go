// Package store persists the state → ZIP code lookup so the dashboard can
// load it from a database instead of a static JSON file.
package store

import (
	"context"
	"sort"
	"time"
)

// Import describes one ReplaceLookup call.
type Import struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	States     int       `json:"states"`
	Zipcodes   int       `json:"zipcodes"`
	ImportedAt time.Time `json:"imported_at"`
}

// Store defines the persistence interface for the lookup.
type Store interface {
	// ReplaceLookup swaps the stored lookup for lookup atomically, keeping
	// each state's ZIP order.
	ReplaceLookup(ctx context.Context, source string, lookup map[string][]string) (*Import, error)
	// LoadLookup returns the stored lookup.
	LoadLookup(ctx context.Context) (map[string][]string, error)
	// LastImport returns the most recent import, or nil when none exists.
	LastImport(ctx context.Context) (*Import, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// lookupRows flattens a lookup into (state, zipcode, ord) rows in a stable
// state order.
func lookupRows(lookup map[string][]string) ([][]any, int) {
	states := make([]string, 0, len(lookup))
	for s := range lookup {
		states = append(states, s)
	}
	sort.Strings(states)

	var rows [][]any
	for _, s := range states {
		for i, z := range lookup[s] {
			rows = append(rows, []any{s, z, i})
		}
	}
	return rows, len(states)
}
