package action

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is an allow-list of action references.
//
//	actions:
//	  - actions.js#search
//	  - actions.js#attachPhoto
type Manifest struct {
	Actions []string `yaml:"actions"`

	allowed map[Reference]bool
}

// NewManifest builds a manifest from reference tokens.
func NewManifest(tokens ...string) (*Manifest, error) {
	m := &Manifest{Actions: tokens}
	if err := m.index(); err != nil {
		return nil, err
	}
	return m, nil
}

// ParseManifest parses a YAML manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("action: parse manifest: %w", err)
	}
	if err := m.index(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadManifest reads a YAML manifest from path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("action: read manifest: %w", err)
	}
	return ParseManifest(data)
}

// Allows reports whether ref is listed.
func (m *Manifest) Allows(ref Reference) bool {
	return m.allowed[ref]
}

// Len returns the number of listed references.
func (m *Manifest) Len() int {
	return len(m.allowed)
}

func (m *Manifest) index() error {
	m.allowed = make(map[Reference]bool, len(m.Actions))
	for _, token := range m.Actions {
		ref, err := ParseReference(token)
		if err != nil {
			return fmt.Errorf("action: manifest entry: %w", err)
		}
		m.allowed[ref] = true
	}
	return nil
}
