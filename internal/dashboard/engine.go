// Package dashboard hosts one map view per browser tab on the server. Each
// session drives the interaction controller against a command buffer that
// the client replays on its rendering engine.
package dashboard

import (
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/zipmap/internal/geometry"
	"github.com/sells-group/zipmap/internal/interaction"
	"github.com/sells-group/zipmap/internal/region"
)

// CommandKind names an engine or panel command.
type CommandKind string

// Command kinds.
const (
	CommandFitBounds      CommandKind = "fit_bounds"
	CommandSetFilter      CommandKind = "set_filter"
	CommandSetCursor      CommandKind = "set_cursor"
	CommandRemove         CommandKind = "remove"
	CommandCapturePointer CommandKind = "capture_pointer"
	CommandReleasePointer CommandKind = "release_pointer"
	CommandTextSelection  CommandKind = "text_selection"
)

// EasingOutQuad is the wire name of geometry.EaseOutQuad.
const EasingOutQuad = "ease-out-quad"

// Command is one instruction for the client.
type Command struct {
	Kind       CommandKind    `json:"kind"`
	Bounds     *geometry.BBox `json:"bounds,omitempty"`
	Padding    float64        `json:"padding,omitempty"`
	DurationMS int64          `json:"duration_ms,omitempty"`
	Easing     string         `json:"easing,omitempty"`
	Layer      string         `json:"layer,omitempty"`
	Filter     *region.Filter `json:"filter,omitempty"`
	Cursor     *string        `json:"cursor,omitempty"`
	PointerID  *int           `json:"pointer_id,omitempty"`
	Enabled    *bool          `json:"enabled,omitempty"`
}

type handlerEntry struct {
	id int
	h  interaction.Handler
}

// CommandBuffer is an interaction.Engine that queues commands instead of
// rendering them. Events reported by the client are fed back through Emit.
type CommandBuffer struct {
	mu       sync.Mutex
	handlers map[interaction.EventKind][]handlerEntry
	nextID   int
	viewport interaction.Viewport
	cmds     []Command
	removed  bool
}

// NewCommandBuffer returns an empty buffer for a canvas of the given size.
func NewCommandBuffer(vp interaction.Viewport) *CommandBuffer {
	return &CommandBuffer{
		handlers: make(map[interaction.EventKind][]handlerEntry),
		viewport: vp,
	}
}

// On implements interaction.Engine.
func (b *CommandBuffer) On(kind interaction.EventKind, h interaction.Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.handlers[kind] = append(b.handlers[kind], handlerEntry{id: id, h: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		entries := b.handlers[kind]
		for i, e := range entries {
			if e.id == id {
				b.handlers[kind] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}
}

// Emit delivers ev to the handlers registered for its kind, in
// registration order. Emitting on a removed buffer does nothing.
func (b *CommandBuffer) Emit(ev interaction.Event) {
	b.mu.Lock()
	if b.removed {
		b.mu.Unlock()
		return
	}
	entries := append([]handlerEntry(nil), b.handlers[ev.Kind]...)
	b.mu.Unlock()

	for _, e := range entries {
		e.h(ev)
	}
}

// FitBounds implements interaction.Engine.
func (b *CommandBuffer) FitBounds(bbox geometry.BBox, opts interaction.FitOptions) {
	cmd := Command{
		Kind:       CommandFitBounds,
		Bounds:     &bbox,
		Padding:    opts.Padding,
		DurationMS: opts.Duration.Milliseconds(),
	}
	if opts.Easing != nil {
		cmd.Easing = EasingOutQuad
	}
	b.push(cmd)
}

// SetFilter implements interaction.Engine.
func (b *CommandBuffer) SetFilter(layerID string, f region.Filter) {
	b.push(Command{Kind: CommandSetFilter, Layer: layerID, Filter: &f})
}

// SetCursor implements interaction.Engine.
func (b *CommandBuffer) SetCursor(c interaction.Cursor) {
	s := string(c)
	b.push(Command{Kind: CommandSetCursor, Cursor: &s})
}

// Viewport implements interaction.Engine.
func (b *CommandBuffer) Viewport() interaction.Viewport {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.viewport
}

// SetViewport records the canvas size last reported by the client.
func (b *CommandBuffer) SetViewport(vp interaction.Viewport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.viewport = vp
}

// Remove implements interaction.Engine.
func (b *CommandBuffer) Remove() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.removed {
		return
	}
	b.removed = true
	b.handlers = make(map[interaction.EventKind][]handlerEntry)
	b.cmds = append(b.cmds, Command{Kind: CommandRemove})
}

// Removed reports whether Remove was called.
func (b *CommandBuffer) Removed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.removed
}

// Drain returns and clears the queued commands.
func (b *CommandBuffer) Drain() []Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	cmds := b.cmds
	b.cmds = nil
	if cmds == nil {
		cmds = []Command{}
	}
	return cmds
}

func (b *CommandBuffer) push(c Command) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.removed {
		return
	}
	b.cmds = append(b.cmds, c)
}

// panelSurface is the resize.Surface of a session's sidebar. Pointer
// capture and text selection changes are queued as commands; sizes come
// from the most recent client report.
type panelSurface struct {
	buf *CommandBuffer

	mu             sync.Mutex
	captured       map[int]bool
	panelHeight    float64
	viewportHeight float64
}

func newPanelSurface(buf *CommandBuffer) *panelSurface {
	return &panelSurface{buf: buf, captured: make(map[int]bool)}
}

func (s *panelSurface) report(panelHeight, viewportHeight float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if panelHeight > 0 {
		s.panelHeight = panelHeight
	}
	if viewportHeight > 0 {
		s.viewportHeight = viewportHeight
	}
}

func (s *panelSurface) CapturePointer(id int) {
	s.mu.Lock()
	s.captured[id] = true
	s.mu.Unlock()
	s.buf.push(Command{Kind: CommandCapturePointer, PointerID: &id})
}

func (s *panelSurface) ReleasePointer(id int) error {
	s.mu.Lock()
	ok := s.captured[id]
	delete(s.captured, id)
	s.mu.Unlock()
	if !ok {
		return eris.Errorf("dashboard: pointer %d not captured", id)
	}
	s.buf.push(Command{Kind: CommandReleasePointer, PointerID: &id})
	return nil
}

func (s *panelSurface) SetTextSelection(enabled bool) {
	s.buf.push(Command{Kind: CommandTextSelection, Enabled: &enabled})
}

func (s *panelSurface) PanelHeight() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.panelHeight
}

func (s *panelSurface) ViewportHeight() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewportHeight
}
