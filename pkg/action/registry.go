package action

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// Registry resolves references against registered modules.
type Registry struct {
	mu       sync.RWMutex
	loaders  map[string]Loader
	manifest *Manifest

	// cache holds loaded modules by path. Concurrent first loads of the same
	// module may both run; the first stored table wins.
	cache sync.Map
	loads atomic.Int64
}

// Option configures a Registry.
type Option func(*Registry)

// WithManifest restricts resolution to the references in m.
func WithManifest(m *Manifest) Option {
	return func(r *Registry) {
		r.manifest = m
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{loaders: make(map[string]Loader)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a lazily loaded module.
func (r *Registry) Register(modulePath string, loader Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[modulePath] = loader
	r.cache.Delete(modulePath)
}

// RegisterModule adds a module whose exports are already known.
func (r *Registry) RegisterModule(modulePath string, m Module) {
	r.Register(modulePath, func(context.Context) (Module, error) { return m, nil })
}

// Manifest returns the configured allow-list, or nil.
func (r *Registry) Manifest() *Manifest {
	return r.manifest
}

// Loads returns how many times a module loader has run.
func (r *Registry) Loads() int64 {
	return r.loads.Load()
}

// Resolve parses token and returns the server action it names.
func (r *Registry) Resolve(ctx context.Context, token string) (*Resolved, error) {
	ref, err := ParseReference(token)
	if err != nil {
		return nil, err
	}
	if r.manifest != nil && !r.manifest.Allows(ref) {
		return nil, fmt.Errorf("%w: %s is not in the manifest", ErrUntrustedAction, ref)
	}

	mod, err := r.load(ctx, ref.ModulePath)
	if err != nil {
		return nil, err
	}

	export, ok := mod[ref.ExportName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrExportNotFound, ref)
	}
	sa, ok := export.(*ServerAction)
	if !ok || sa == nil || sa.fn == nil {
		return nil, fmt.Errorf("%w: %s", ErrUntrustedAction, ref)
	}
	return &Resolved{Ref: ref, Action: sa}, nil
}

func (r *Registry) load(ctx context.Context, modulePath string) (mod Module, err error) {
	if cached, ok := r.cache.Load(modulePath); ok {
		return cached.(Module), nil
	}

	r.mu.RLock()
	loader, ok := r.loaders[modulePath]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no module %q", ErrModuleLoad, modulePath)
	}

	defer func() {
		if p := recover(); p != nil {
			mod, err = nil, fmt.Errorf("%w: %s panicked: %v", ErrModuleLoad, modulePath, p)
		}
	}()

	r.loads.Add(1)
	mod, err = loader(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrModuleLoad, modulePath, err)
	}
	if mod == nil {
		mod = Module{}
	}
	actual, _ := r.cache.LoadOrStore(modulePath, mod)
	return actual.(Module), nil
}

// Entry describes one export for listings.
type Entry struct {
	Ref       Reference
	Published bool // wrapped with Server
	Allowed   bool // permitted by the manifest (always true without one)
}

// List loads every registered module and describes its exports, sorted by
// reference.
func (r *Registry) List(ctx context.Context) ([]Entry, error) {
	r.mu.RLock()
	paths := make([]string, 0, len(r.loaders))
	for p := range r.loaders {
		paths = append(paths, p)
	}
	r.mu.RUnlock()
	sort.Strings(paths)

	var entries []Entry
	for _, p := range paths {
		mod, err := r.load(ctx, p)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(mod))
		for name := range mod {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			ref := Reference{ModulePath: p, ExportName: name}
			_, published := mod[name].(*ServerAction)
			entries = append(entries, Entry{
				Ref:       ref,
				Published: published,
				Allowed:   r.manifest == nil || r.manifest.Allows(ref),
			})
		}
	}
	return entries, nil
}
