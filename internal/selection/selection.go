// Package selection holds the dashboard's selection state machine: which
// state is chosen, which zip3 region is highlighted and whether the sidebar
// is open.
package selection

import (
	"sync"

	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/zipmap/internal/feature"
)

// State is an immutable snapshot of the selection. Empty strings and a nil
// feature mean "absent". SelectedFeature is non-nil iff HighlightedZip3 is
// non-empty.
type State struct {
	SelectedState   string
	HighlightedZip3 string
	SelectedFeature *geojson.Feature
	SidebarOpen     bool
	SidebarTitle    string
}

// Action is a transition request.
type Action interface {
	action()
}

// SelectState chooses a state by name.
type SelectState struct {
	Name string
}

// SelectZip highlights the clicked zip3 feature, or clears the highlight
// when the same zip3 is clicked again.
type SelectZip struct {
	Feature *geojson.Feature
}

// CloseSidebar hides the sidebar and keeps every selection.
type CloseSidebar struct{}

func (SelectState) action()  {}
func (SelectZip) action()    {}
func (CloseSidebar) action() {}

// Reduce returns the state that follows s under a. Unknown actions, empty
// state names and features without a zip3 leave s unchanged.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SelectState:
		if a.Name == "" {
			return s
		}
		s.SelectedState = a.Name
		s.HighlightedZip3 = ""
		s.SelectedFeature = nil
		s.SidebarOpen = true
		s.SidebarTitle = "State: " + a.Name
		return s

	case SelectZip:
		zip3 := feature.Zip3(a.Feature)
		if zip3 == "" {
			return s
		}
		if zip3 == s.HighlightedZip3 {
			s.HighlightedZip3 = ""
			s.SelectedFeature = nil
			s.SidebarOpen = false
			s.SidebarTitle = ""
			return s
		}
		s.HighlightedZip3 = zip3
		s.SelectedFeature = a.Feature
		s.SidebarOpen = true
		s.SidebarTitle = "Zipcode: " + zip3
		return s

	case CloseSidebar:
		s.SidebarOpen = false
		return s

	default:
		return s
	}
}

// Listener observes a transition that changed the state.
type Listener func(prev, next State)

// Machine owns the current State and notifies listeners on change.
type Machine struct {
	mu        sync.Mutex
	state     State
	listeners map[int]Listener
	nextID    int
}

// NewMachine returns a machine in the idle state.
func NewMachine() *Machine {
	return &Machine{listeners: make(map[int]Listener)}
}

// State returns the current snapshot.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Dispatch applies a and returns the resulting state. Listeners run after
// the new state is stored, in subscription order, only when it differs from
// the previous one.
func (m *Machine) Dispatch(a Action) State {
	m.mu.Lock()
	prev := m.state
	next := Reduce(prev, a)
	m.state = next
	var ls []Listener
	if next != prev {
		ls = m.snapshotListeners()
	}
	m.mu.Unlock()

	for _, l := range ls {
		l(prev, next)
	}
	return next
}

// Subscribe registers l and returns a function that removes it.
func (m *Machine) Subscribe(l Listener) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

func (m *Machine) snapshotListeners() []Listener {
	ls := make([]Listener, 0, len(m.listeners))
	for id := 0; id < m.nextID; id++ {
		if l, ok := m.listeners[id]; ok {
			ls = append(ls, l)
		}
	}
	return ls
}
