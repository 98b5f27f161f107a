// Package feature reads GeoJSON features and the properties the dashboard
// keys on.
package feature

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Property names with dedicated handling.
const (
	PropZip3     = "zip3"
	PropName     = "name"
	PropSpending = "spending"
)

// Zip3 returns the feature's 3-digit ZIP prefix, or "" when absent.
// Numeric values are zero-padded.
func Zip3(f *geojson.Feature) string {
	return stringProp(f, PropZip3, 3)
}

// Name returns the feature's display name, or "" when absent.
func Name(f *geojson.Feature) string {
	return stringProp(f, PropName, 0)
}

// Properties returns the feature's property map, which may be nil.
func Properties(f *geojson.Feature) map[string]any {
	if f == nil {
		return nil
	}
	return f.Properties
}

func stringProp(f *geojson.Feature, key string, pad int) string {
	if f == nil || f.Properties == nil {
		return ""
	}
	switch v := f.Properties[key].(type) {
	case string:
		return v
	case float64:
		if v == math.Trunc(v) && v >= 0 {
			return fmt.Sprintf("%0*d", pad, int64(v))
		}
		return fmt.Sprint(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// Decode reads a GeoJSON FeatureCollection.
func Decode(r io.Reader) (*geojson.FeatureCollection, error) {
	var fc geojson.FeatureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, eris.Wrap(err, "feature: decode collection")
	}
	return &fc, nil
}

// DecodeFeature parses a single GeoJSON Feature.
func DecodeFeature(data []byte) (*geojson.Feature, error) {
	var f geojson.Feature
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "feature: decode feature")
	}
	return &f, nil
}

// Index maps a property value to its feature.
type Index struct {
	key      string
	features map[string]*geojson.Feature
}

// NewIndex indexes fc by the given property (PropZip3 or PropName). Features
// missing the property are skipped; on duplicates the first feature wins.
func NewIndex(fc *geojson.FeatureCollection, key string) *Index {
	idx := &Index{key: key, features: make(map[string]*geojson.Feature)}
	if fc == nil {
		return idx
	}
	for _, f := range fc.Features {
		k := stringProp(f, key, padFor(key))
		if k == "" {
			continue
		}
		if _, ok := idx.features[k]; !ok {
			idx.features[k] = f
		}
	}
	return idx
}

func padFor(key string) int {
	if key == PropZip3 {
		return 3
	}
	return 0
}

// Get returns the feature stored under k.
func (i *Index) Get(k string) (*geojson.Feature, bool) {
	if i == nil {
		return nil, false
	}
	f, ok := i.features[k]
	return f, ok
}

// Len returns the number of indexed features.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.features)
}
