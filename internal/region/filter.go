// Package region projects the selection state onto the zip3 layer filters,
// using the static state → ZIP code lookup.
package region

import (
	"encoding/json"

	"github.com/sells-group/zipmap/internal/feature"
)

// Op is a filter predicate kind.
type Op string

// Supported predicates.
const (
	OpIn    Op = "in"
	OpEqual Op = "=="
)

// Filter matches a named feature property against a literal set (OpIn) or a
// single literal (OpEqual). An OpIn filter with no values matches nothing.
type Filter struct {
	Op       Op
	Property string
	Values   []string
}

// In returns a set-membership filter on the zip3 property.
func In(values ...string) Filter {
	if values == nil {
		values = []string{}
	}
	return Filter{Op: OpIn, Property: feature.PropZip3, Values: values}
}

// Equal returns a single-value filter on the zip3 property.
func Equal(value string) Filter {
	return Filter{Op: OpEqual, Property: feature.PropZip3, Values: []string{value}}
}

// Empty returns the filter that matches no feature.
func Empty() Filter {
	return In()
}

// MatchesNothing reports whether no property value can satisfy f.
func (f Filter) MatchesNothing() bool {
	return len(f.Values) == 0
}

// Match evaluates f against a feature's properties.
func (f Filter) Match(props map[string]any) bool {
	v, ok := props[f.Property].(string)
	if !ok {
		return false
	}
	switch f.Op {
	case OpEqual:
		return len(f.Values) == 1 && f.Values[0] == v
	case OpIn:
		for _, want := range f.Values {
			if want == v {
				return true
			}
		}
	}
	return false
}

// MarshalJSON renders f as a map-engine style expression, e.g.
// ["in",["get","zip3"],["literal",["430","432"]]] or
// ["==",["get","zip3"],"432"].
func (f Filter) MarshalJSON() ([]byte, error) {
	get := []any{"get", f.Property}
	if f.Op == OpEqual && len(f.Values) == 1 {
		return json.Marshal([]any{string(OpEqual), get, f.Values[0]})
	}
	values := f.Values
	if values == nil {
		values = []string{}
	}
	return json.Marshal([]any{string(OpIn), get, []any{"literal", values}})
}
