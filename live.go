package shipyard

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/vango-dev/shipyard/internal/errors"
	"github.com/vango-dev/shipyard/pkg/protocol"
	"github.com/vango-dev/shipyard/pkg/scope"
	"github.com/vango-dev/shipyard/pkg/stream"
)

// handleLive upgrades to a websocket and sends the page render as one text
// message per row, then a normal close. A render that fails before any row
// is reported as a single error row.
func (a *App) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already answered.
		a.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go stream.WatchPeer(conn, cancel)

	sink := stream.NewWebSocketSink(conn, a.config.Stream.WriteTimeout)
	handle := stream.NewHandle(sink, stream.WithObserver(a.metrics))

	sc := scope.FromRequest(r, chi.URLParam(r, RouteParam))
	p, err := a.render(ctx, sc)
	if err == nil {
		err = p.Peek(ctx)
		if err != nil {
			p.Cancel()
		}
	}
	if err != nil {
		e := apperrors.Classify(err)
		a.logger.Error("live render failed", "path", r.URL.Path, "code", e.Code, "error", err)
		handle.Write(ctx, protocol.NewEncoder().Error(e.Public()))
		handle.CloseWithError(err)
		return
	}

	if err := stream.Pipe(ctx, p, handle); err != nil {
		a.logStreamEnd(r, handle, err)
	}
}
