// Package shapefile converts ZIP3 boundary shapefiles into the GeoJSON
// FeatureCollection the dashboard serves as its zipcodes source.
package shapefile

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/zipmap/internal/feature"
)

// Options controls how attribute columns map onto feature properties.
type Options struct {
	// Zip3Field is the attribute holding the 3-digit prefix. Default "ZIP3".
	Zip3Field string
	// NameField, when set, is copied into the "name" property.
	NameField string
	// Fields limits which attributes are kept. Empty keeps all.
	Fields []string
}

func (o Options) withDefaults() Options {
	if o.Zip3Field == "" {
		o.Zip3Field = "ZIP3"
	}
	return o
}

// ToFeatureCollection reads the polygon shapefile at path. Records without a
// usable polygon or ZIP3 value are skipped.
func ToFeatureCollection(path string, opts Options) (*geojson.FeatureCollection, error) {
	opts = opts.withDefaults()

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: open %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}

	keep := make(map[string]bool, len(opts.Fields))
	for _, f := range opts.Fields {
		keep[strings.ToLower(f)] = true
	}

	fc := &geojson.FeatureCollection{}
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		g := polygonToMultiPolygon(poly)
		if g == nil {
			skipped++
			continue
		}

		props := make(map[string]any, len(names)+2)
		for i, name := range names {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			switch {
			case strings.EqualFold(name, opts.Zip3Field):
				if val != "" {
					props[feature.PropZip3] = padZip3(val)
				}
			case opts.NameField != "" && strings.EqualFold(name, opts.NameField):
				if val != "" {
					props[feature.PropName] = val
				}
			case len(keep) == 0 || keep[strings.ToLower(name)]:
				if val != "" {
					props[strings.ToLower(name)] = val
				}
			}
		}

		if _, ok := props[feature.PropZip3]; !ok {
			skipped++
			continue
		}

		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   g,
			Properties: props,
		})
	}

	if skipped > 0 {
		zap.L().Debug("shapefile: skipped records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}

	return fc, nil
}

// Write encodes fc as GeoJSON to w.
func Write(w io.Writer, fc *geojson.FeatureCollection) error {
	if err := json.NewEncoder(w).Encode(fc); err != nil {
		return eris.Wrap(err, "shapefile: encode geojson")
	}
	return nil
}

func padZip3(v string) string {
	for len(v) < 3 {
		v = "0" + v
	}
	return v
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
// Clockwise rings start a new polygon; counter-clockwise rings are holes of
// the polygon before them.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	var current *geom.Polygon

	flush := func() {
		if current == nil {
			return
		}
		if err := mp.Push(current); err != nil {
			zap.L().Debug("shapefile: skipping malformed polygon", zap.Error(err))
		}
		current = nil
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 4 {
			continue
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		ring := geom.NewLinearRingFlat(geom.XY, flat)

		if signedArea(flat) <= 0 || current == nil {
			flush()
			current = geom.NewPolygon(geom.XY)
		}
		if err := current.Push(ring); err != nil {
			zap.L().Debug("shapefile: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
		}
	}
	flush()

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// signedArea is positive for counter-clockwise rings.
func signedArea(flat []float64) float64 {
	var sum float64
	for i := 0; i+3 < len(flat); i += 2 {
		sum += flat[i]*flat[i+3] - flat[i+2]*flat[i+1]
	}
	return sum / 2
}
