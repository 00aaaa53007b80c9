package shipyard

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStaticRelPath(t *testing.T) {
	a := New(Config{Static: StaticConfig{Dir: t.TempDir(), Prefix: "/static"}, Logger: quietLogger()}, nil, nil)

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"/static/app.css", "app.css", true},
		{"/static/js/index.js", "js/index.js", true},
		{"/static/", "", false},
		{"/other/app.css", "", false},
		{"/static/../secret.txt", "", false},
		{"/static/./app.css", "", false},
		{"/static//etc/passwd", "", false},
		{"/static/a\\b", "", false},
		{"/static/a\x00b", "", false},
	}
	for _, tt := range tests {
		got, ok := a.staticRelPath(tt.path)
		if got != tt.want || ok != tt.ok {
			t.Errorf("staticRelPath(%q) = %q, %v; want %q, %v", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}

func TestStaticBlocksTraversal(t *testing.T) {
	tmp := t.TempDir()
	public := filepath.Join(tmp, "public")
	if err := os.MkdirAll(public, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	os.WriteFile(filepath.Join(public, "ok.txt"), []byte("ok"), 0o644)
	os.WriteFile(filepath.Join(tmp, "secret.txt"), []byte("secret"), 0o644)

	a := New(Config{Static: StaticConfig{Dir: public, Prefix: "/static"}, Logger: quietLogger()}, nil, nil)

	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/ok.txt", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("GET /static/ok.txt = %d %q", rec.Code, rec.Body)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-store, no-cache, must-revalidate" {
		t.Errorf("Cache-Control = %q", cc)
	}

	for _, p := range []string{"/static/../secret.txt", "/static/%2e%2e/secret.txt", "/static/..//secret.txt", "/static/" + tmp + "/secret.txt"} {
		rec := httptest.NewRecorder()
		a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://example.com"+p, nil))
		if strings.Contains(rec.Body.String(), "secret") {
			t.Errorf("GET %s served secret content", p)
		}
	}
}

func TestIsFingerprinted(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"app.a1b2c3d4.css", true},
		{"js/index.0123456789abcdef.js", true},
		{"app.css", false},
		{"app.min.js", false},
		{"app.a1b2c3.css", false},
		{"vendor.zzzzzzzz.js", false},
	}
	for _, tt := range tests {
		if got := isFingerprinted(tt.name); got != tt.want {
			t.Errorf("isFingerprinted(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
