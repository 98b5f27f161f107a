// Package sidebar builds the side panel view from the selection state: the
// title, a generic properties table and the spending time series.
package sidebar

import (
	"io"
	"sort"
	"sync"

	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/zipmap/internal/feature"
	"github.com/sells-group/zipmap/internal/format"
	"github.com/sells-group/zipmap/internal/resize"
	"github.com/sells-group/zipmap/internal/selection"
	"github.com/sells-group/zipmap/internal/spending"
)

// NoProperties is shown when the selected feature carries no properties.
const NoProperties = "No properties available"

// excluded keys have dedicated rendering.
var excluded = map[string]bool{
	feature.PropSpending: true,
	feature.PropZip3:     true,
}

// Property is one row of the properties table.
type Property struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// PropertyRows returns the displayable properties sorted by key.
func PropertyRows(props map[string]any) []Property {
	keys := make([]string, 0, len(props))
	for k := range props {
		if !excluded[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	rows := make([]Property, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, Property{Key: k, Value: format.Value(props[k])})
	}
	return rows
}

// SpendingView is the rendered spending section.
type SpendingView struct {
	Table  spending.Table  `json:"table"`
	Slider spending.Slider `json:"slider"`
}

// View is everything the client needs to draw the panel.
type View struct {
	Open        bool          `json:"open"`
	Title       string        `json:"title,omitempty"`
	Height      *float64      `json:"height,omitempty"`
	Properties  []Property    `json:"properties,omitempty"`
	Empty       string        `json:"empty,omitempty"`
	Spending    *SpendingView `json:"spending,omitempty"`
	FocusSlider bool          `json:"focus_slider"`
}

// Presenter keeps the per-feature spending series in step with the
// selection state.
type Presenter struct {
	mu      sync.Mutex
	resize  *resize.Controller
	state   selection.State
	feature *geojson.Feature
	series  *spending.Series
}

// NewPresenter returns a presenter for a closed panel. rc may be nil when
// the panel is not resizable.
func NewPresenter(rc *resize.Controller) *Presenter {
	return &Presenter{resize: rc}
}

// Sync records the new selection state. A different selected feature resets
// the spending series to its latest year-month; closing the panel drops any
// dragged height.
func (p *Presenter) Sync(s selection.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
	if !s.SidebarOpen && p.resize != nil {
		p.resize.Reset()
	}
	if s.SelectedFeature != p.feature {
		p.feature = s.SelectedFeature
		p.series = nil
		if p.feature != nil {
			p.series = spending.FromProperties(p.feature.Properties)
		}
	}
}

// WriteSpending exports the rows on the current slider page as an xlsx
// workbook. It reports false, writing nothing, when no series is shown.
func (p *Presenter) WriteSpending(w io.Writer, sheetName string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.series == nil {
		return false, nil
	}
	return true, spending.WriteXLSX(w, p.series, sheetName)
}

// SetIndex moves the spending slider. It reports false when no series is
// shown.
func (p *Presenter) SetIndex(i int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.series == nil {
		return false
	}
	p.series.SetIndex(i)
	return true
}

// HandleKey forwards a key press to the slider and reports whether it must
// not propagate to the map.
func (p *Presenter) HandleKey(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.series == nil {
		return false
	}
	return p.series.HandleKey(key)
}

// View renders the panel.
func (p *Presenter) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()

	v := View{
		Open:        p.state.SidebarOpen,
		Title:       p.state.SidebarTitle,
		FocusSlider: p.state.SidebarOpen && p.feature != nil && p.series != nil,
	}
	if p.resize != nil {
		if h, ok := p.resize.Height(); ok {
			v.Height = &h
		}
	}
	if p.feature == nil {
		return v
	}
	if p.feature.Properties == nil {
		v.Empty = NoProperties
		return v
	}
	v.Properties = PropertyRows(p.feature.Properties)
	if p.series != nil {
		v.Spending = &SpendingView{Table: p.series.Table(), Slider: p.series.Slider()}
	}
	return v
}
