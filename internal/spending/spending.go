// Package spending derives the time-indexed spending table shown for a
// selected zip3 region.
package spending

import (
	"encoding/json"
	"sort"

	"github.com/sells-group/zipmap/internal/feature"
	"github.com/sells-group/zipmap/internal/format"
)

// Record is one spending row: YM (year-month), C (category), TBS
// (beneficiaries served), TC (claims) and TAP (amount paid). Values are kept
// as decoded so cells render exactly what the source carried.
type Record map[string]any

// YM returns the record's year-month key, or "" when absent. Undated
// records share the "" page, which sorts before every dated one.
func (r Record) YM() string {
	if r == nil {
		return ""
	}
	v, ok := r["YM"]
	if !ok || v == nil {
		return ""
	}
	return format.Value(v)
}

// Column is a spending table column.
type Column struct {
	Key    string
	Header string
}

// Columns is the fixed display order of the spending table.
var Columns = []Column{
	{Key: "C", Header: "category"},
	{Key: "YM", Header: "year_month"},
	{Key: "TBS", Header: "total_beneficiaries_served"},
	{Key: "TC", Header: "total_claims"},
	{Key: "TAP", Header: "total_amount_paid"},
}

// FormatCell renders one cell. The amount-paid column is formatted as
// currency; absent values render as an em-dash.
func FormatCell(key string, v any) string {
	if v == nil {
		return format.Missing
	}
	if key == "TAP" {
		return format.Currency(v)
	}
	return format.Value(v)
}

// Parse extracts the spending records from feature properties. The value may
// be a decoded array or a JSON-encoded string of one; anything that does not
// yield a non-empty array reports false.
func Parse(props map[string]any) ([]Record, bool) {
	raw, ok := props[feature.PropSpending]
	if !ok || falsy(raw) {
		return nil, false
	}

	var items []any
	switch v := raw.(type) {
	case string:
		if err := json.Unmarshal([]byte(v), &items); err != nil {
			return nil, false
		}
	case []any:
		items = v
	case []map[string]any:
		for _, m := range v {
			items = append(items, m)
		}
	default:
		return nil, false
	}
	if len(items) == 0 {
		return nil, false
	}

	records := make([]Record, 0, len(items))
	for _, it := range items {
		m, _ := it.(map[string]any)
		records = append(records, Record(m))
	}
	return records, true
}

func falsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case float64:
		return x == 0
	}
	return false
}

// Series indexes records by their distinct year-month keys.
type Series struct {
	records []Record
	yms     []string
	index   int
}

// NewSeries builds a series positioned on the most recent year-month.
func NewSeries(records []Record) *Series {
	seen := make(map[string]struct{}, len(records))
	var yms []string
	for _, r := range records {
		ym := r.YM()
		if _, ok := seen[ym]; ok {
			continue
		}
		seen[ym] = struct{}{}
		yms = append(yms, ym)
	}
	sort.Strings(yms)

	s := &Series{records: records, yms: yms}
	s.index = s.Max()
	return s
}

// FromProperties parses props and returns its series, or nil when the
// feature carries no usable spending data.
func FromProperties(props map[string]any) *Series {
	records, ok := Parse(props)
	if !ok {
		return nil
	}
	return NewSeries(records)
}

// YMs returns the sorted distinct year-month keys.
func (s *Series) YMs() []string {
	return s.yms
}

// Len returns the number of distinct year-months.
func (s *Series) Len() int {
	return len(s.yms)
}

// Max returns the highest valid index.
func (s *Series) Max() int {
	return max(0, len(s.yms)-1)
}

// Index returns the current position.
func (s *Series) Index() int {
	return s.index
}

// SetIndex moves to i, clamped to [0, Max()], and returns the new index.
func (s *Series) SetIndex(i int) int {
	s.index = min(max(i, 0), s.Max())
	return s.index
}

// Label returns the year-month at the current index.
func (s *Series) Label() string {
	if len(s.yms) == 0 {
		return ""
	}
	return s.yms[s.index]
}

// Rows returns the records for the current year-month, in source order.
func (s *Series) Rows() []Record {
	if len(s.yms) == 0 {
		return nil
	}
	ym := s.Label()
	var rows []Record
	for _, r := range s.records {
		if r.YM() == ym {
			rows = append(rows, r)
		}
	}
	return rows
}

// Table is the rendered spending table.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Table renders the current rows in Columns order.
func (s *Series) Table() Table {
	t := Table{Headers: make([]string, len(Columns)), Rows: [][]string{}}
	for i, c := range Columns {
		t.Headers[i] = c.Header
	}
	for _, r := range s.Rows() {
		row := make([]string, len(Columns))
		for i, c := range Columns {
			row[i] = FormatCell(c.Key, r[c.Key])
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
