package assets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestManifestResolve(t *testing.T) {
	m := NewManifest(map[string]string{
		"js/index.js": "js/index.a1b2c3d4.js",
		"/style.css":  "/style.e5f6a7b8.css",
	})

	tests := []struct {
		source string
		want   string
	}{
		{"js/index.js", "js/index.a1b2c3d4.js"},
		{"/style.css", "style.e5f6a7b8.css"},
		{"unknown.js", "unknown.js"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := m.Resolve(tt.source); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.source, got, tt.want)
		}
	}

	var nilManifest *Manifest
	if got := nilManifest.Resolve("app.js"); got != "app.js" {
		t.Errorf("nil Resolve = %q", got)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(`{"app.js": "app.0123abcd.js"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if m.Len() != 1 || m.Resolve("app.js") != "app.0123abcd.js" {
		t.Errorf("manifest = %+v", m.entries)
	}

	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
	os.WriteFile(path, []byte("{not json"), 0o644)
	if _, err := Load(path); err == nil {
		t.Error("Load() of invalid JSON succeeded")
	}
}

func TestRewriteShell(t *testing.T) {
	m := NewManifest(map[string]string{
		"app.js":        "app.11111111.js",
		"vendor/app.js": "vendor/app.22222222.js",
		"style.css":     "style.33333333.css",
	})
	doc := []byte(`<link rel="stylesheet" href="/style.css">` +
		`<script src='/app.js'></script>` +
		`<script src="/vendor/app.js"></script>` +
		`<a href="/style.css.map">map</a>`)

	got := string(RewriteShell(doc, m, "/"))
	want := `<link rel="stylesheet" href="/style.33333333.css">` +
		`<script src='/app.11111111.js'></script>` +
		`<script src="/vendor/app.22222222.js"></script>` +
		`<a href="/style.css.map">map</a>`
	if got != want {
		t.Errorf("RewriteShell() =\n%s\nwant\n%s", got, want)
	}
	if string(doc) == got {
		t.Error("input was not rewritten")
	}

	if out := RewriteShell(doc, nil, "/"); string(out) != string(doc) {
		t.Error("nil manifest changed the document")
	}
}
