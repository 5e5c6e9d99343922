package cfoapi

import (
	"errors"
	"fmt"
	"maps"
	"os"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"

	"github.com/tensorplex-labs/cfo/pkg/apiclient"
)

var ErrManifestEntry = errors.New("manifest: fallback entry must set exactly one of static or inline")

// Manifest overrides the built-in fallback map and defaults. Inline and
// default values are written as YAML and re-encoded as JSON.
//
//	fallbacks:
//	  financial-summary:
//	    static: /mock/financials.json
//	  export:
//	    inline: {success: false, demo: true}
//	defaults:
//	  risk-assessment: {success: false, risks: []}
type Manifest struct {
	Fallbacks map[string]ManifestEntry `yaml:"fallbacks"`
	Defaults  map[string]any           `yaml:"defaults"`
}

type ManifestEntry struct {
	Static string `yaml:"static"`
	Inline any    `yaml:"inline"`
}

func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data)
}

func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	for id, e := range m.Fallbacks {
		if (e.Static == "") == (e.Inline == nil) {
			return nil, fmt.Errorf("%w: %s", ErrManifestEntry, id)
		}
	}
	return &m, nil
}

// Merge layers the manifest over base fallbacks and defaults.
func (m *Manifest) Merge(
	fallbacks map[apiclient.EndpointID]apiclient.Fallback,
	defaults map[apiclient.EndpointID]apiclient.Payload,
) (map[apiclient.EndpointID]apiclient.Fallback, map[apiclient.EndpointID]apiclient.Payload, error) {
	fb := maps.Clone(fallbacks)
	if fb == nil {
		fb = map[apiclient.EndpointID]apiclient.Fallback{}
	}
	df := maps.Clone(defaults)
	if df == nil {
		df = map[apiclient.EndpointID]apiclient.Payload{}
	}

	for id, e := range m.Fallbacks {
		if e.Static != "" {
			fb[apiclient.EndpointID(id)] = apiclient.Static(e.Static)
			continue
		}
		b, err := sonic.Marshal(e.Inline)
		if err != nil {
			return nil, nil, fmt.Errorf("manifest inline %s: %w", id, err)
		}
		fb[apiclient.EndpointID(id)] = apiclient.Inline(b)
	}
	for id, v := range m.Defaults {
		b, err := sonic.Marshal(v)
		if err != nil {
			return nil, nil, fmt.Errorf("manifest default %s: %w", id, err)
		}
		df[apiclient.EndpointID(id)] = b
	}
	return fb, df, nil
}

// Options returns client options applying the manifest over the built-in
// dashboard map. Pass them after NewClient's own defaults.
func (m *Manifest) Options() ([]apiclient.Option, error) {
	fb, df, err := m.Merge(Fallbacks(), Defaults())
	if err != nil {
		return nil, err
	}
	return []apiclient.Option{apiclient.WithFallbacks(fb), apiclient.WithDefaults(df)}, nil
}
