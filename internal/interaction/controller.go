package interaction

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/zipmap/internal/feature"
	"github.com/sells-group/zipmap/internal/geometry"
	"github.com/sells-group/zipmap/internal/mapconfig"
	"github.com/sells-group/zipmap/internal/region"
	"github.com/sells-group/zipmap/internal/selection"
)

// Defaults for state-click handling.
const (
	DefaultStateClickInterval = 200 * time.Millisecond
	DefaultFitPadding         = 0.15
	DefaultFitDuration        = 700 * time.Millisecond
)

// Options configures a Controller.
type Options struct {
	// Lookup resolves a state to its ZIP codes for the layer filters.
	Lookup region.Lookup
	// StateClickInterval is the minimum time between accepted state clicks.
	StateClickInterval time.Duration
	// FitPadding is the camera padding as a fraction of viewport width.
	FitPadding float64
	// FitDuration is the camera animation length.
	FitDuration time.Duration
	// Now is the clock; time.Now when nil.
	Now func() time.Time
}

func (o *Options) setDefaults() {
	if o.StateClickInterval <= 0 {
		o.StateClickInterval = DefaultStateClickInterval
	}
	if o.FitPadding <= 0 {
		o.FitPadding = DefaultFitPadding
	}
	if o.FitDuration <= 0 {
		o.FitDuration = DefaultFitDuration
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Controller owns an engine for its lifetime: it attaches the listeners it
// needs on construction and detaches them and removes the engine on Close.
type Controller struct {
	engine  Engine
	machine *selection.Machine
	opts    Options
	limiter *rate.Limiter
	log     *zap.Logger

	mu     sync.Mutex
	offs   []func()
	closed bool
}

// New attaches a controller to engine and machine and installs the initial
// empty zip3 filters.
func New(engine Engine, machine *selection.Machine, opts Options) *Controller {
	opts.setDefaults()
	c := &Controller{
		engine:  engine,
		machine: machine,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Every(opts.StateClickInterval), 1),
		log:     zap.L().With(zap.String("component", "interaction")),
	}

	c.offs = append(c.offs,
		engine.On(EventClick, c.HandleClick),
		engine.On(EventMouseEnter, c.handleHover),
		engine.On(EventMouseLeave, c.handleHover),
		machine.Subscribe(c.syncFilters),
	)
	c.applyFilters(machine.State(), true, true)
	return c
}

// HandleClick routes a click to the handler for its layer. Clicks on other
// layers, or without features, are ignored.
func (c *Controller) HandleClick(ev Event) {
	if len(ev.Features) == 0 {
		return
	}
	switch ev.LayerID {
	case mapconfig.LayerStates:
		c.handleStateClick(ev)
	case mapconfig.LayerZipcodes:
		c.machine.Dispatch(selection.SelectZip{Feature: ev.Features[0]})
	}
}

func (c *Controller) handleStateClick(ev Event) {
	if !c.limiter.AllowN(c.opts.Now(), 1) {
		c.log.Debug("state click dropped", zap.String("layer", ev.LayerID))
		return
	}

	f := ev.Features[0]
	name := feature.Name(f)
	if f.Geometry != nil {
		bbox := geometry.BoundingBox(f.Geometry)
		if !bbox.Empty() {
			c.engine.FitBounds(bbox, FitOptions{
				Padding:  c.engine.Viewport().Width * c.opts.FitPadding,
				Duration: c.opts.FitDuration,
				Easing:   geometry.EaseOutQuad,
			})
		}
	}
	if name == "" {
		c.log.Debug("state feature without name")
		return
	}
	c.machine.Dispatch(selection.SelectState{Name: name})
}

func (c *Controller) handleHover(ev Event) {
	if !interactiveLayer(ev.LayerID) {
		return
	}
	switch ev.Kind {
	case EventMouseEnter:
		c.engine.SetCursor(CursorPointer)
	case EventMouseLeave:
		c.engine.SetCursor(CursorDefault)
	}
}

func interactiveLayer(id string) bool {
	return id == mapconfig.LayerStates || id == mapconfig.LayerZipcodes
}

func (c *Controller) syncFilters(prev, next selection.State) {
	c.applyFilters(next,
		prev.SelectedState != next.SelectedState,
		prev.HighlightedZip3 != next.HighlightedZip3,
	)
}

func (c *Controller) applyFilters(s selection.State, visible, highlight bool) {
	if visible {
		f := region.VisibleFilter(s.SelectedState, c.opts.Lookup)
		if s.SelectedState != "" && f.MatchesNothing() {
			c.log.Info("state has no zip codes", zap.String("state", s.SelectedState))
		}
		c.engine.SetFilter(mapconfig.LayerZipcodes, f)
		c.engine.SetFilter(mapconfig.LayerZipLabels, f)
	}
	if highlight {
		c.engine.SetFilter(mapconfig.LayerZipHighlight, region.HighlightFilter(s.HighlightedZip3))
	}
}

// Close detaches every listener and removes the engine. It is safe to call
// more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for _, off := range c.offs {
		off()
	}
	c.offs = nil
	c.engine.Remove()
}
