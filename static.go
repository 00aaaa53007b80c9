package shipyard

import (
	"net/http"
	"path"
	"path/filepath"
	"strings"
)

// staticRelPath maps a URL path to a path inside the static directory,
// rejecting anything that could escape it.
func (a *App) staticRelPath(urlPath string) (string, bool) {
	if a.staticFS == nil {
		return "", false
	}

	rel, ok := strings.CutPrefix(urlPath, a.staticPrefix())
	if !ok || rel == "" {
		return "", false
	}
	if strings.IndexByte(rel, 0) != -1 || strings.Contains(rel, "\\") {
		return "", false
	}
	// "/static//etc/passwd" strips to an absolute path.
	if strings.HasPrefix(rel, "/") {
		return "", false
	}
	// Dot segments are refused outright rather than cleaned away.
	for _, seg := range strings.Split(rel, "/") {
		if seg == "." || seg == ".." {
			return "", false
		}
	}

	clean := path.Clean(rel)
	if clean == "." || strings.HasPrefix(clean, "../") || strings.HasPrefix(clean, "/") {
		return "", false
	}
	osPath := filepath.FromSlash(clean)
	if filepath.IsAbs(osPath) || filepath.VolumeName(osPath) != "" {
		return "", false
	}
	return clean, true
}

func (a *App) staticPrefix() string {
	prefix := a.config.Static.Prefix
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

// shouldServeStatic reports whether urlPath names a regular file.
func (a *App) shouldServeStatic(urlPath string) bool {
	rel, ok := a.staticRelPath(urlPath)
	if !ok {
		return false
	}
	f, err := a.staticFS.Open(rel)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	return err == nil && !info.IsDir()
}

// serveStatic serves the file named by the request path.
func (a *App) serveStatic(w http.ResponseWriter, r *http.Request) {
	rel, ok := a.staticRelPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	f, err := a.staticFS.Open(rel)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	a.applyCacheHeaders(w, rel)
	for key, value := range a.config.Static.Headers {
		w.Header().Set(key, value)
	}
	http.ServeContent(w, r, rel, info.ModTime(), f)
}

func (a *App) applyCacheHeaders(w http.ResponseWriter, rel string) {
	switch a.config.Static.CacheControl {
	case CacheControlNone:
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	case CacheControlProduction:
		if isFingerprinted(rel) {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		} else {
			w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
		}
	}
}

// isFingerprinted reports whether the name carries a hex hash before its
// extension, as in app.a1b2c3d4.css.
func isFingerprinted(rel string) bool {
	parts := strings.Split(path.Base(rel), ".")
	if len(parts) < 3 {
		return false
	}
	hash := parts[len(parts)-2]
	if len(hash) < 8 {
		return false
	}
	for _, c := range hash {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}
