// Package mapconfig describes the base map, its GeoJSON sources and the
// layers the dashboard draws and filters.
package mapconfig

import (
	_ "embed"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Layer ids the interaction controller and filter projection refer to.
const (
	LayerStates       = "states-layer"
	LayerZipcodes     = "zipcode-layer"
	LayerZipLabels    = "zipcode-labels"
	LayerZipHighlight = "zipcode-highlight"
	SourceStates      = "states"
	SourceZipcodes    = "zipcodes"
)

//go:embed mapconfig.yaml
var defaultYAML []byte

// Source is a GeoJSON source definition.
type Source struct {
	Type string `yaml:"type" json:"type"`
	Data string `yaml:"data" json:"data"`
}

// Layer is a map layer definition passed through to the client.
type Layer struct {
	ID          string         `yaml:"id" json:"id"`
	Type        string         `yaml:"type" json:"type"`
	Source      string         `yaml:"source" json:"source"`
	Interactive bool           `yaml:"interactive" json:"interactive,omitempty"`
	Paint       map[string]any `yaml:"paint" json:"paint,omitempty"`
	Layout      map[string]any `yaml:"layout" json:"layout,omitempty"`
}

// Config is the full base map description.
type Config struct {
	Style      string            `yaml:"style" json:"style"`
	Center     [2]float64        `yaml:"center" json:"center"`
	Zoom       float64           `yaml:"zoom" json:"zoom"`
	MinZoom    float64           `yaml:"min_zoom" json:"min_zoom"`
	MaxZoom    float64           `yaml:"max_zoom" json:"max_zoom"`
	DragRotate bool              `yaml:"drag_rotate" json:"drag_rotate"`
	Sources    map[string]Source `yaml:"sources" json:"sources"`
	Layers     []Layer           `yaml:"layers" json:"layers"`
}

// Default returns the embedded configuration.
func Default() (*Config, error) {
	return Parse(defaultYAML)
}

// Parse decodes a YAML map configuration and checks that every layer the
// dashboard drives is present.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, eris.Wrap(err, "mapconfig: parse yaml")
	}
	for _, id := range []string{LayerStates, LayerZipcodes, LayerZipLabels, LayerZipHighlight} {
		if cfg.Layer(id) == nil {
			return nil, eris.Errorf("mapconfig: missing layer %q", id)
		}
	}
	return &cfg, nil
}

// Layer returns the layer with the given id, or nil.
func (c *Config) Layer(id string) *Layer {
	for i := range c.Layers {
		if c.Layers[i].ID == id {
			return &c.Layers[i]
		}
	}
	return nil
}

// InteractiveLayers returns the ids of layers that receive click and hover
// events.
func (c *Config) InteractiveLayers() []string {
	var ids []string
	for _, l := range c.Layers {
		if l.Interactive {
			ids = append(ids, l.ID)
		}
	}
	return ids
}

// WithSourceData returns a copy of c with the named source's data location
// replaced, when location is non-empty.
func (c *Config) WithSourceData(name, location string) *Config {
	if location == "" {
		return c
	}
	out := *c
	out.Sources = make(map[string]Source, len(c.Sources))
	for k, v := range c.Sources {
		out.Sources[k] = v
	}
	src := out.Sources[name]
	src.Data = location
	out.Sources[name] = src
	return &out
}
