package shipyard

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	apperrors "github.com/vango-dev/shipyard/internal/errors"
	"github.com/vango-dev/shipyard/pkg/protocol"
	"github.com/vango-dev/shipyard/pkg/render"
	"github.com/vango-dev/shipyard/pkg/scope"
	"github.com/vango-dev/shipyard/pkg/stream"
)

// handleRender streams the page for the request's scope.
func (a *App) handleRender(w http.ResponseWriter, r *http.Request) {
	sc := scope.FromRequest(r, chi.URLParam(r, RouteParam))
	p, err := a.render(r.Context(), sc)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.stream(w, r, p)
}

// handleAction invokes the action named by the rsc-action header and
// streams the page with its result.
func (a *App) handleAction(w http.ResponseWriter, r *http.Request) {
	sc := scope.FromRequest(r, chi.URLParam(r, RouteParam))
	token := r.Header.Get(ActionHeader)
	body := http.MaxBytesReader(w, r.Body, a.config.Actions.MaxBodyBytes)

	p, err := a.dispatcher.Dispatch(r.Context(), token, body, r.Header, sc)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.stream(w, r, p)
}

// render builds the root inside sc and returns its producer.
func (a *App) render(ctx context.Context, sc scope.Scope) (*stream.Producer, error) {
	return scope.Run(ctx, sc, func(ctx context.Context) (*stream.Producer, error) {
		root, err := a.root(ctx)
		if err != nil {
			return nil, &render.Error{Err: err}
		}
		return a.engine.Render(ctx, render.PageInput(root)), nil
	})
}

// stream answers 200 once the first row exists. A render that fails before
// producing anything is still answered with an error status.
func (a *App) stream(w http.ResponseWriter, r *http.Request, p *stream.Producer) {
	ctx := r.Context()
	if err := p.Peek(ctx); err != nil {
		p.Cancel()
		a.fail(w, r, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", protocol.ContentType)
	h.Set("Cache-Control", "no-store")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	handle := stream.NewHandle(stream.NewHTTPSink(w), stream.WithObserver(a.metrics))
	if err := stream.Pipe(ctx, p, handle); err != nil {
		a.logStreamEnd(r, handle, err)
	}
}

func (a *App) logStreamEnd(r *http.Request, h *stream.Handle, err error) {
	attrs := []any{
		"request_id", chimw.GetReqID(r.Context()),
		"path", r.URL.Path,
		"stream_id", h.ID(),
		"bytes", h.Bytes(),
		"error", err,
	}
	if errors.Is(err, stream.ErrTransportClosed) {
		a.logger.Debug("client went away mid-stream", attrs...)
		return
	}
	a.logger.Error("stream ended with error", attrs...)
}

// fail answers with a JSON error body, unless the client is already gone.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	e := apperrors.Classify(err)
	attrs := []any{
		"request_id", chimw.GetReqID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"code", e.Code,
		"error", err,
	}
	if e.Code == apperrors.CodeTransportClosed || errors.Is(err, context.Canceled) {
		a.logger.Debug("client went away before the stream started", attrs...)
		return
	}
	a.logger.Error("request failed", attrs...)
	apperrors.WriteJSON(w, e)
}

// handlePage serves a static file if one matches, else the HTML shell.
func (a *App) handlePage(w http.ResponseWriter, r *http.Request) {
	if a.shouldServeStatic(r.URL.Path) {
		a.serveStatic(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(a.config.Shell)
}

// cleanSearch redirects GET and HEAD requests carrying an empty search
// parameter to the same URL without it.
func cleanSearch(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		q := r.URL.Query()
		vals, ok := q[scope.SearchParam]
		if !ok || len(vals) != 1 || vals[0] != "" {
			next.ServeHTTP(w, r)
			return
		}
		q.Del(scope.SearchParam)
		// A path starting with "//" would read as a host in Location.
		u := url.URL{Path: "/" + strings.TrimLeft(r.URL.Path, "/\\"), RawQuery: q.Encode()}
		http.Redirect(w, r, u.String(), http.StatusFound)
	})
}
