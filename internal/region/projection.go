package region

import "github.com/sells-group/zipmap/internal/selection"

// Lookup maps a state name to its ordered full ZIP codes. It is read-only
// once loaded.
type Lookup map[string][]string

// Zip3s returns the 3-digit prefix of every ZIP listed for state, in lookup
// order. Duplicates are kept; consumers test set membership.
func (l Lookup) Zip3s(state string) []string {
	zips := l[state]
	if len(zips) == 0 {
		return nil
	}
	out := make([]string, 0, len(zips))
	for _, z := range zips {
		if len(z) > 3 {
			z = z[:3]
		}
		out = append(out, z)
	}
	return out
}

// States returns the number of states in the lookup.
func (l Lookup) States() int {
	return len(l)
}

// VisibleFilter returns the filter for the zip3 polygon and label layers.
// No state, or a state without ZIPs, yields a filter matching nothing.
func VisibleFilter(state string, l Lookup) Filter {
	if state == "" {
		return Empty()
	}
	zip3s := l.Zip3s(state)
	if len(zip3s) == 0 {
		return Empty()
	}
	return In(zip3s...)
}

// HighlightFilter returns the filter for the highlight layer.
func HighlightFilter(zip3 string) Filter {
	if zip3 == "" {
		return Empty()
	}
	return Equal(zip3)
}

// Projection is the pair of filters derived from one selection state.
type Projection struct {
	Visible   Filter
	Highlight Filter
}

// Project derives both filters from s.
func Project(s selection.State, l Lookup) Projection {
	return Projection{
		Visible:   VisibleFilter(s.SelectedState, l),
		Highlight: HighlightFilter(s.HighlightedZip3),
	}
}
