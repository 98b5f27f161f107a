// Package geometry computes bounding boxes and camera zoom levels for
// GeoJSON geometries decoded with go-geom.
package geometry

import (
	"math"

	"github.com/twpayne/go-geom"
)

// TileSize is the Web-Mercator world size in pixels at zoom 0.
const TileSize = 256

// DefaultFill is the fraction of the viewport a fitted box should occupy.
const DefaultFill = 0.5

// BBox is a geographic bounding box in degrees.
type BBox struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// EmptyBBox returns the identity box: every real coordinate extends it.
func EmptyBBox() BBox {
	return BBox{
		MinLon: math.Inf(1),
		MinLat: math.Inf(1),
		MaxLon: math.Inf(-1),
		MaxLat: math.Inf(-1),
	}
}

// Empty reports whether no coordinate has been added to the box.
func (b BBox) Empty() bool {
	return b.MinLon > b.MaxLon || b.MinLat > b.MaxLat
}

// Corners returns the box as [[minLon, minLat], [maxLon, maxLat]], the shape
// map engines accept for fit-bounds.
func (b BBox) Corners() [2][2]float64 {
	return [2][2]float64{{b.MinLon, b.MinLat}, {b.MaxLon, b.MaxLat}}
}

// Extend grows the box to include the given coordinate.
func (b *BBox) Extend(lon, lat float64) {
	b.MinLon = math.Min(b.MinLon, lon)
	b.MinLat = math.Min(b.MinLat, lat)
	b.MaxLon = math.Max(b.MaxLon, lon)
	b.MaxLat = math.Max(b.MaxLat, lat)
}

// BoundingBox returns the min/max longitude and latitude over every
// coordinate of g. Polygons and multi-polygons are walked through the same
// recursion. A nil or empty geometry yields EmptyBBox.
func BoundingBox(g geom.T) BBox {
	b := EmptyBBox()
	b.add(g)
	return b
}

func (b *BBox) add(g geom.T) {
	switch g := g.(type) {
	case nil:
	case *geom.Point:
		if !g.Empty() {
			b.Extend(g.X(), g.Y())
		}
	case *geom.LinearRing:
		for i := 0; i < g.NumCoords(); i++ {
			c := g.Coord(i)
			b.Extend(c.X(), c.Y())
		}
	case *geom.Polygon:
		for i := 0; i < g.NumLinearRings(); i++ {
			b.add(g.LinearRing(i))
		}
	case *geom.MultiPolygon:
		for i := 0; i < g.NumPolygons(); i++ {
			b.add(g.Polygon(i))
		}
	case *geom.GeometryCollection:
		for _, child := range g.Geoms() {
			b.add(child)
		}
	default:
		// Line strings and multi-points carry no nesting that matters for
		// extent; walk their flat coordinates directly.
		flat, stride := g.FlatCoords(), g.Stride()
		if stride < 2 {
			return
		}
		for i := 0; i+1 < len(flat); i += stride {
			b.Extend(flat[i], flat[i+1])
		}
	}
}

// MercatorY projects a latitude in degrees onto the normalized Web-Mercator
// y axis, where 0 is the top of the world and 1 the bottom.
func MercatorY(lat float64) float64 {
	rad := lat * math.Pi / 180
	y := math.Log(math.Tan(rad) + 1/math.Cos(rad))
	return (1 - y/math.Pi) / 2
}

// MercatorX projects a longitude in degrees onto [0, 1].
func MercatorX(lon float64) float64 {
	return (lon + 180) / 360
}

// ZoomToFit returns the zoom level at which b occupies fill of the viewport
// along its tighter axis, so the whole box fits on both axes.
func ZoomToFit(b BBox, viewportWidth, viewportHeight, fill float64) float64 {
	dx := math.Abs(MercatorX(b.MaxLon) - MercatorX(b.MinLon))
	dy := math.Abs(MercatorY(b.MaxLat) - MercatorY(b.MinLat))

	zoomX := math.Log2((viewportWidth * fill) / (dx * TileSize))
	zoomY := math.Log2((viewportHeight * fill) / (dy * TileSize))
	return math.Min(zoomX, zoomY)
}

// EaseOutQuad is the camera timing curve t ↦ t·(2−t).
func EaseOutQuad(t float64) float64 {
	return t * (2 - t)
}
