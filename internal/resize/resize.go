// Package resize tracks pointer drags on the sidebar handle and derives the
// panel's explicit height.
package resize

import (
	"math"
	"sync"

	"go.uber.org/zap"
)

// Defaults for the panel height bounds.
const (
	DefaultMinHeight         = 120
	DefaultMaxHeightFraction = 0.96
)

// PrimaryButton is the pointer button that starts a drag.
const PrimaryButton = 0

// Surface is the panel and document the controller acts on.
type Surface interface {
	// CapturePointer routes all further events for id to the handle.
	CapturePointer(id int)
	// ReleasePointer ends a capture. It may fail when capture was already
	// lost.
	ReleasePointer(id int) error
	// SetTextSelection enables or suppresses document text selection.
	SetTextSelection(enabled bool)
	// PanelHeight is the rendered height of the panel in pixels.
	PanelHeight() float64
	// ViewportHeight is the current viewport height in pixels.
	ViewportHeight() float64
}

// PointerEvent is a pointer-down, move or up on the handle.
type PointerEvent struct {
	PointerID int     `json:"pointer_id"`
	Button    int     `json:"button"`
	ClientY   float64 `json:"client_y"`
}

// DragState is the controller's tracking state.
type DragState int

const (
	DragStateIdle DragState = iota
	DragStateDragging
)

// Options bounds the panel height.
type Options struct {
	MinHeight         float64
	MaxHeightFraction float64
}

// Controller turns handle drags into a panel height.
type Controller struct {
	mu          sync.Mutex
	surface     Surface
	opts        Options
	state       DragState
	startY      float64
	startHeight float64
	height      float64
	hasHeight   bool
}

// New creates a controller. Zero options take the package defaults.
func New(surface Surface, opts Options) *Controller {
	if opts.MinHeight <= 0 {
		opts.MinHeight = DefaultMinHeight
	}
	if opts.MaxHeightFraction <= 0 {
		opts.MaxHeightFraction = DefaultMaxHeightFraction
	}
	return &Controller{surface: surface, opts: opts}
}

// PointerDown starts a drag on a primary-button press and reports whether
// one started.
func (c *Controller) PointerDown(ev PointerEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ev.Button != PrimaryButton {
		return false
	}
	c.state = DragStateDragging
	c.startY = ev.ClientY
	c.startHeight = c.surface.PanelHeight()
	c.surface.SetTextSelection(false)
	c.surface.CapturePointer(ev.PointerID)
	return true
}

// PointerMove resizes the panel while dragging. Dragging upward grows it.
// It returns the applied height and whether the event was consumed.
func (c *Controller) PointerMove(ev PointerEvent) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != DragStateDragging {
		return 0, false
	}
	maxH := math.Floor(c.surface.ViewportHeight() * c.opts.MaxHeightFraction)
	delta := c.startY - ev.ClientY
	c.height = math.Max(c.opts.MinHeight, math.Min(maxH, c.startHeight+delta))
	c.hasHeight = true
	return c.height, true
}

// PointerUp ends a drag. Capture release errors are ignored.
func (c *Controller) PointerUp(ev PointerEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != DragStateDragging {
		return
	}
	c.state = DragStateIdle
	c.surface.SetTextSelection(true)
	if err := c.surface.ReleasePointer(ev.PointerID); err != nil {
		zap.L().Debug("resize: pointer release failed", zap.Int("pointer_id", ev.PointerID), zap.Error(err))
	}
}

// Height returns the explicit panel height, if one has been set.
func (c *Controller) Height() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height, c.hasHeight
}

// Dragging reports whether a drag is in progress.
func (c *Controller) Dragging() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == DragStateDragging
}

// Reset clears the explicit height so the panel reopens at its default size.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.height = 0
	c.hasHeight = false
}
