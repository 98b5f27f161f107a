package dashboard

import (
	"bytes"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/zipmap/internal/interaction"
	"github.com/sells-group/zipmap/internal/region"
	"github.com/sells-group/zipmap/internal/resize"
	"github.com/sells-group/zipmap/internal/selection"
	"github.com/sells-group/zipmap/internal/sidebar"
)

// ErrSessionClosed is returned for events on a closed session.
var ErrSessionClosed = eris.New("dashboard: session closed")

// ErrNoSpending is returned by ExportSpending when the selection has no
// spending series.
var ErrNoSpending = eris.New("dashboard: no spending data for the selection")

// DefaultViewport is assumed until the client reports its canvas size.
var DefaultViewport = interaction.Viewport{Width: 1280, Height: 800}

// Options configures new sessions.
type Options struct {
	Lookup      region.Lookup
	Interaction interaction.Options
	Resize      resize.Options
	Viewport    interaction.Viewport
	// Now is the clock used for idle tracking; time.Now when nil.
	Now func() time.Time
}

// PointerPhase is the stage of a handle drag.
type PointerPhase string

// Pointer phases.
const (
	PointerDown PointerPhase = "down"
	PointerMove PointerPhase = "move"
	PointerUp   PointerPhase = "up"
)

// PointerRequest is a pointer event on the sidebar resize handle, with the
// sizes the client measured when it fired.
type PointerRequest struct {
	Phase PointerPhase `json:"phase"`
	resize.PointerEvent
	PanelHeight    float64 `json:"panel_height"`
	ViewportHeight float64 `json:"viewport_height"`
}

// Selection summarizes the selection state for the client.
type Selection struct {
	State string `json:"state,omitempty"`
	Zip3  string `json:"zip3,omitempty"`
}

// Response is what every session call returns: the commands to replay and
// the panel to draw.
type Response struct {
	Session         string       `json:"session"`
	Commands        []Command    `json:"commands"`
	Selection       Selection    `json:"selection"`
	Sidebar         sidebar.View `json:"sidebar"`
	StopPropagation bool         `json:"stop_propagation,omitempty"`
}

// Session is one map view. All calls are serialized so transitions never
// interleave.
type Session struct {
	id string

	mu         sync.Mutex
	now        func() time.Time
	lastSeen   time.Time
	closed     bool
	engine     *CommandBuffer
	surface    *panelSurface
	machine    *selection.Machine
	controller *interaction.Controller
	presenter  *sidebar.Presenter
	resize     *resize.Controller
	unsync     func()
}

// NewSession wires a fresh machine, controller and presenter together.
func NewSession(id string, opts Options) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	vp := opts.Viewport
	if vp.Width <= 0 || vp.Height <= 0 {
		vp = DefaultViewport
	}

	engine := NewCommandBuffer(vp)
	surface := newPanelSurface(engine)
	surface.report(0, vp.Height)
	rc := resize.New(surface, opts.Resize)
	presenter := sidebar.NewPresenter(rc)
	machine := selection.NewMachine()

	s := &Session{
		id:        id,
		now:       opts.Now,
		lastSeen:  opts.Now(),
		engine:    engine,
		surface:   surface,
		machine:   machine,
		presenter: presenter,
		resize:    rc,
	}
	s.unsync = machine.Subscribe(func(_, next selection.State) { presenter.Sync(next) })

	iopts := opts.Interaction
	iopts.Lookup = opts.Lookup
	s.controller = interaction.New(engine, machine, iopts)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// LastSeen returns the time of the most recent call.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// State returns the current selection state.
func (s *Session) State() selection.State {
	return s.machine.State()
}

// Sidebar returns the pending commands and current panel.
func (s *Session) Sidebar() (Response, error) {
	return s.do(func() bool { return false })
}

// Click reports a click on layerID with the features under the pointer.
// A non-zero viewport updates the canvas size first.
func (s *Session) Click(layerID string, features []*geojson.Feature, vp interaction.Viewport) (Response, error) {
	return s.do(func() bool {
		if vp.Width > 0 && vp.Height > 0 {
			s.engine.SetViewport(vp)
		}
		s.engine.Emit(interaction.Event{Kind: interaction.EventClick, LayerID: layerID, Features: features})
		return false
	})
}

// Hover reports the pointer entering or leaving a layer.
func (s *Session) Hover(kind interaction.EventKind, layerID string) (Response, error) {
	if kind != interaction.EventMouseEnter && kind != interaction.EventMouseLeave {
		return Response{}, eris.Errorf("dashboard: unknown hover kind %q", kind)
	}
	return s.do(func() bool {
		s.engine.Emit(interaction.Event{Kind: kind, LayerID: layerID})
		return false
	})
}

// CloseSidebar hides the panel; selections are kept.
func (s *Session) CloseSidebar() (Response, error) {
	return s.do(func() bool {
		s.machine.Dispatch(selection.CloseSidebar{})
		return false
	})
}

// Slider moves the spending slider to index, clamped to the series.
func (s *Session) Slider(index int) (Response, error) {
	return s.do(func() bool {
		s.presenter.SetIndex(index)
		return false
	})
}

// Key forwards a key press on the focused slider.
func (s *Session) Key(key string) (Response, error) {
	return s.do(func() bool {
		return s.presenter.HandleKey(key)
	})
}

// Pointer forwards a resize handle event.
func (s *Session) Pointer(req PointerRequest) (Response, error) {
	switch req.Phase {
	case PointerDown, PointerMove, PointerUp:
	default:
		return Response{}, eris.Errorf("dashboard: unknown pointer phase %q", req.Phase)
	}
	return s.do(func() bool {
		s.surface.report(req.PanelHeight, req.ViewportHeight)
		switch req.Phase {
		case PointerDown:
			return s.resize.PointerDown(req.PointerEvent)
		case PointerMove:
			_, ok := s.resize.PointerMove(req.PointerEvent)
			return ok
		default:
			s.resize.PointerUp(req.PointerEvent)
			return false
		}
	})
}

// ExportSpending renders the visible spending page as an xlsx workbook.
// The workbook is built under the session lock, so it always matches the
// slider position of the last handled event.
func (s *Session) ExportSpending(sheetName string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	s.lastSeen = s.now()

	var buf bytes.Buffer
	ok, err := s.presenter.WriteSpending(&buf, sheetName)
	if err != nil {
		return nil, eris.Wrap(err, "dashboard: export spending")
	}
	if !ok {
		return nil, ErrNoSpending
	}
	return buf.Bytes(), nil
}

// Close detaches the controller and removes the engine. The final response
// carries the remove command.
func (s *Session) Close() Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.unsync()
		s.controller.Close()
	}
	return s.response(false)
}

func (s *Session) do(fn func() (stop bool)) (Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Response{}, ErrSessionClosed
	}
	s.lastSeen = s.now()
	stop := fn()
	return s.response(stop), nil
}

func (s *Session) response(stop bool) Response {
	st := s.machine.State()
	return Response{
		Session:         s.id,
		Commands:        s.engine.Drain(),
		Selection:       Selection{State: st.SelectedState, Zip3: st.HighlightedZip3},
		Sidebar:         s.presenter.View(),
		StopPropagation: stop,
	}
}
