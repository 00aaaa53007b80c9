// Package scope carries per-request ambient data (route parameter and query
// state) through a request's task tree.
//
// A Scope rides on context.Context. Every goroutine started with a context
// derived from the request context sees the same Scope, and concurrent
// requests never share one:
//
//	ctx := scope.With(r.Context(), scope.FromRequest(r, chi.URLParam(r, "routeParam")))
//	...
//	if s, ok := scope.Current(ctx); ok {
//	    shipID, _ := s.Route()
//	}
package scope

import (
	"context"
	"net/http"
)

// SearchParam is the query parameter holding the search state.
const SearchParam = "search"

// Scope is the immutable per-request state.
type Scope struct {
	// RouteParam is the optional trailing path segment ("" when absent).
	RouteParam string

	// Search is the search query state ("" when absent).
	Search string
}

// Route returns the route parameter and whether one was supplied.
func (s Scope) Route() (string, bool) {
	return s.RouteParam, s.RouteParam != ""
}

type scopeKey struct{}

// With returns a copy of ctx that carries s. An enclosing scope is shadowed.
func With(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// Current returns the scope carried by ctx. The boolean is false outside any
// scope; callers should fall back to defaults rather than fail.
func Current(ctx context.Context) (Scope, bool) {
	if ctx == nil {
		return Scope{}, false
	}
	s, ok := ctx.Value(scopeKey{}).(Scope)
	return s, ok
}

// OrDefault returns the current scope or the zero Scope.
func OrDefault(ctx context.Context) Scope {
	s, _ := Current(ctx)
	return s
}

// Run executes body with s installed as the current scope.
func Run[T any](ctx context.Context, s Scope, body func(ctx context.Context) (T, error)) (T, error) {
	return body(With(ctx, s))
}

// FromRequest builds a Scope from the route parameter and the request query.
func FromRequest(r *http.Request, routeParam string) Scope {
	return Scope{
		RouteParam: routeParam,
		Search:     r.URL.Query().Get(SearchParam),
	}
}
