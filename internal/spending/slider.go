package spending

// Slider is the integer-stepped control over a Series' year-month index.
type Slider struct {
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Step  int    `json:"step"`
	Value int    `json:"value"`
	Label string `json:"label"`
}

// Slider describes the control for the current position.
func (s *Series) Slider() Slider {
	return Slider{Min: 0, Max: s.Max(), Step: 1, Value: s.index, Label: s.Label()}
}

// Navigation keys handled by the slider. They must not reach the map's own
// keyboard handler.
const (
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
	KeyArrowUp    = "ArrowUp"
	KeyArrowDown  = "ArrowDown"
	KeyPageUp     = "PageUp"
	KeyPageDown   = "PageDown"
	KeyHome       = "Home"
	KeyEnd        = "End"
)

// pageStep is the index distance moved by PageUp/PageDown.
func (s *Series) pageStep() int {
	return max(1, s.Len()/10)
}

// HandleKey applies a navigation key and reports whether propagation to the
// map must stop. Other keys are ignored and allowed to propagate.
func (s *Series) HandleKey(key string) (stop bool) {
	switch key {
	case KeyArrowLeft, KeyArrowDown:
		s.SetIndex(s.index - 1)
	case KeyArrowRight, KeyArrowUp:
		s.SetIndex(s.index + 1)
	case KeyPageDown:
		s.SetIndex(s.index - s.pageStep())
	case KeyPageUp:
		s.SetIndex(s.index + s.pageStep())
	case KeyHome:
		s.SetIndex(0)
	case KeyEnd:
		s.SetIndex(s.Max())
	default:
		return false
	}
	return true
}
