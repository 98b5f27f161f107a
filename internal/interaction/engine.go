// Package interaction turns raw map events into selection transitions and
// drives the map engine's camera and layer filters.
package interaction

import (
	"time"

	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/zipmap/internal/geometry"
	"github.com/sells-group/zipmap/internal/region"
)

// EventKind is a map event type.
type EventKind string

// Event kinds the controller listens to.
const (
	EventClick      EventKind = "click"
	EventMouseEnter EventKind = "mouseenter"
	EventMouseLeave EventKind = "mouseleave"
)

// Event is a raw map event. Features are the candidates under the pointer,
// topmost first.
type Event struct {
	Kind     EventKind
	LayerID  string
	Features []*geojson.Feature
}

// Handler receives map events.
type Handler func(Event)

// Cursor is the pointer cursor shown over the map canvas.
type Cursor string

// Cursors.
const (
	CursorDefault Cursor = ""
	CursorPointer Cursor = "pointer"
)

// Easing is a camera timing curve over t in [0, 1].
type Easing func(t float64) float64

// FitOptions parameterizes a fit-bounds camera animation.
type FitOptions struct {
	Padding  float64
	Duration time.Duration
	Easing   Easing
}

// Viewport is the map canvas size in pixels.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Engine is the map rendering engine the controller drives.
type Engine interface {
	// On registers h for events of the given kind and returns a function
	// that detaches it.
	On(kind EventKind, h Handler) (off func())
	// FitBounds animates the camera so b is fully visible.
	FitBounds(b geometry.BBox, opts FitOptions)
	// SetFilter replaces the filter on a layer.
	SetFilter(layerID string, f region.Filter)
	// SetCursor changes the canvas cursor.
	SetCursor(c Cursor)
	// Viewport returns the current canvas size.
	Viewport() Viewport
	// Remove releases the engine instance.
	Remove()
}
