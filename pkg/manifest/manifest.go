// Package manifest loads module trees described as YAML or JSON documents.
//
// A manifest names its handlers instead of containing them; names are bound
// through a registry.Registry when the manifest is built:
//
//	state: {foo: 0}
//	reducers: {addFoo: incr}   # local name -> registry name
//	actions: {all: sequence}
//	modules:
//	  count:
//	    state: 0
//	    reducers: {add: incr, minus: decr}
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/yax/pkg/domain"
	"github.com/aretw0/yax/pkg/registry"
)

// ErrInvalidManifest is returned for documents that do not describe a module tree.
var ErrInvalidManifest = errors.New("invalid manifest")

// Format is the encoding of a manifest document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format by file extension. Anything that is not
// .json is read as YAML.
func FormatFromPath(path string) Format {
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		return FormatJSON
	}
	return FormatYAML
}

// Manifest is the data form of a domain.Module.
type Manifest struct {
	State    any                  `json:"state,omitempty" yaml:"state,omitempty" mapstructure:"state"`
	Reducers map[string]string    `json:"reducers,omitempty" yaml:"reducers,omitempty" mapstructure:"reducers"`
	Actions  map[string]string    `json:"actions,omitempty" yaml:"actions,omitempty" mapstructure:"actions"`
	Modules  map[string]*Manifest `json:"modules,omitempty" yaml:"modules,omitempty" mapstructure:"modules"`
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a manifest document. Unknown top-level keys are rejected so
// typos such as "reducer" do not silently drop handlers.
func Parse(data []byte, format Format) (*Manifest, error) {
	var raw map[string]any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: failed to parse json: %v", ErrInvalidManifest, err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: failed to parse yaml: %v", ErrInvalidManifest, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidManifest, format)
	}
	return Decode(raw)
}

// Decode converts a loosely typed document (as produced by YAML or JSON
// decoders) into a Manifest.
func Decode(raw map[string]any) (*Manifest, error) {
	var m Manifest
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &m,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return &m, nil
}

// Build binds every handler name through r and returns the validated module tree.
func (m *Manifest) Build(r *registry.Registry) (*domain.Module, error) {
	def, err := m.build(r, nil)
	if err != nil {
		return nil, err
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

func (m *Manifest) build(r *registry.Registry, at domain.Path) (*domain.Module, error) {
	if m == nil {
		return &domain.Module{}, nil
	}
	def := &domain.Module{
		Reducers: make(map[string]domain.Reducer, len(m.Reducers)),
		Actions:  make(map[string]domain.ActionHandler, len(m.Actions)),
		Modules:  make(map[string]*domain.Module, len(m.Modules)),
	}
	if m.State != nil {
		state := m.State
		def.State = domain.StateFunc(func() any { return clone(state) })
	}

	for local, name := range m.Reducers {
		fn, err := r.Reducer(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", at.Type(local), err)
		}
		def.Reducers[local] = fn
	}
	for local, name := range m.Actions {
		fn, err := r.Action(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", at.Type(local), err)
		}
		def.Actions[local] = fn
	}
	for name, child := range m.Modules {
		built, err := child.build(r, at.Child(name))
		if err != nil {
			return nil, err
		}
		def.Modules[name] = built
	}
	return def, nil
}

// clone deep-copies the mappings and lists of a decoded document, so every
// installation of a manifest starts from its own state.
func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = clone(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = clone(item)
		}
		return out
	default:
		return v
	}
}

// LoadModule loads the manifest at path and builds it with r.
func LoadModule(path string, r *registry.Registry) (*domain.Module, error) {
	m, err := Load(path)
	if err != nil {
		return nil, err
	}
	return m.Build(r)
}
