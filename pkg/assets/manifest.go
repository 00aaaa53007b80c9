// Package assets maps asset names to their fingerprinted versions.
//
// A build step writes manifest.json next to the static files:
//
//	{
//	  "js/index.js": "js/index.a1b2c3d4.js",
//	  "style.css": "style.e5f6a7b8.css"
//	}
//
// The shell document keeps referring to the plain names; RewriteShell swaps
// them for the fingerprinted ones so browsers can cache them forever.
package assets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// FileName is the manifest's conventional name inside the static dir.
const FileName = "manifest.json"

// Manifest maps source paths to fingerprinted paths. It is read-only after
// Load and safe for concurrent use.
type Manifest struct {
	entries map[string]string
}

// NewManifest builds a manifest from entries. Leading slashes are dropped.
func NewManifest(entries map[string]string) *Manifest {
	m := &Manifest{entries: make(map[string]string, len(entries))}
	for src, dst := range entries {
		m.entries[strings.TrimPrefix(src, "/")] = strings.TrimPrefix(dst, "/")
	}
	return m
}

// Load reads a manifest.json file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("assets: %s: %w", path, err)
	}
	return NewManifest(entries), nil
}

// Resolve returns the fingerprinted path for source, or source unchanged.
func (m *Manifest) Resolve(source string) string {
	if m == nil {
		return source
	}
	if resolved, ok := m.entries[strings.TrimPrefix(source, "/")]; ok {
		return resolved
	}
	return source
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// RewriteShell replaces src and href attributes that name a manifest entry
// under prefix with the fingerprinted path. doc is not modified.
func RewriteShell(doc []byte, m *Manifest, prefix string) []byte {
	if m.Len() == 0 {
		return doc
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	// Longest source first so "app.js" never rewrites inside "vendor/app.js".
	sources := make([]string, 0, len(m.entries))
	for src := range m.entries {
		sources = append(sources, src)
	}
	sort.Slice(sources, func(i, j int) bool {
		if len(sources[i]) != len(sources[j]) {
			return len(sources[i]) > len(sources[j])
		}
		return sources[i] < sources[j]
	})

	out := doc
	for _, src := range sources {
		for _, attr := range []string{"src", "href"} {
			for _, q := range []string{`"`, `'`} {
				old := []byte(attr + "=" + q + prefix + src + q)
				if !bytes.Contains(out, old) {
					continue
				}
				repl := []byte(attr + "=" + q + prefix + m.entries[src] + q)
				out = bytes.ReplaceAll(out, old, repl)
			}
		}
	}
	return out
}
