package shipyard

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/vango-dev/shipyard/internal/errors"
)

// ListenAndServe listens on addr and calls Serve.
func (a *App) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return apperrors.New(apperrors.CodeListen).Wrap(err)
	}
	return a.Serve(ctx, ln)
}

// Serve accepts connections on ln until draining begins: on a coordinator
// signal, when ctx ends, or when the listener fails. It then stops
// accepting, waits for every open stream to finish within
// ShutdownTimeout, and returns. A clean drain returns nil.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g := new(errgroup.Group)
	g.Go(func() error {
		a.logger.Info("listening", "addr", ln.Addr().String(), "url", "http://"+ln.Addr().String())
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		a.coord.Begin("listener error", err)
		return apperrors.New(apperrors.CodeListen).Wrap(err)
	})

	g.Go(func() error {
		select {
		case <-a.coord.Draining():
		case <-ctx.Done():
			a.coord.Begin("context done", context.Cause(ctx))
		}

		sctx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			a.logger.Error("server shutdown error", "error", err)
		}
		// Hijacked websocket streams are invisible to Shutdown.
		err := a.coord.Wait(sctx)
		if err != nil {
			srv.Close()
		}
		a.logger.Info("server shutdown complete", "active_streams", a.coord.Active())
		return err
	})

	return g.Wait()
}
