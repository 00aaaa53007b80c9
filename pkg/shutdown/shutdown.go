// Package shutdown coordinates draining of in-flight streams.
//
// A Coordinator moves Running -> Draining -> Terminated. Begin (on a signal
// or a fatal listener error) enters Draining; Wait returns once every
// tracked stream has been released, or when its context ends, and enters
// Terminated either way. Transitions are one-directional: a second Begin is
// a no-op.
//
//	coord := shutdown.New(logger)
//	stop := coord.NotifySignals()
//	defer stop()
//	<-coord.Draining()
//	httpServer.Shutdown(ctx) // stop accepting
//	coord.Wait(ctx)          // let open streams finish
package shutdown

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// State is the lifecycle state of a Coordinator.
type State int32

const (
	StateRunning State = iota
	StateDraining
	StateTerminated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Coordinator tracks open streams and the shutdown state.
type Coordinator struct {
	logger *slog.Logger

	mu     sync.Mutex
	state  State
	active int
	reason string
	cause  error

	draining   chan struct{}
	idle       chan struct{} // closed while draining with no active streams
	idleClosed bool
	terminated chan struct{}
	termOnce   sync.Once
}

// New creates a Coordinator in the Running state.
func New(logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		logger:     logger,
		draining:   make(chan struct{}),
		idle:       make(chan struct{}),
		terminated: make(chan struct{}),
	}
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Active returns the number of tracked streams.
func (c *Coordinator) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Reason returns why draining began.
func (c *Coordinator) Reason() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason, c.cause
}

// Draining is closed when draining begins.
func (c *Coordinator) Draining() <-chan struct{} { return c.draining }

// Terminated is closed when the coordinator terminates.
func (c *Coordinator) Terminated() <-chan struct{} { return c.terminated }

// Track registers an open stream. Streams may still open while draining,
// since their requests were accepted before the listener closed; after
// termination Track refuses. release is idempotent.
func (c *Coordinator) Track() (release func(), ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateTerminated {
		return func() {}, false
	}
	if c.idleClosed {
		c.idle = make(chan struct{})
		c.idleClosed = false
	}
	c.active++

	var once sync.Once
	return func() {
		once.Do(c.release)
	}, true
}

func (c *Coordinator) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active--
	if c.state == StateDraining && c.active == 0 {
		c.signalIdle()
	}
}

// signalIdle closes idle. c.mu must be held.
func (c *Coordinator) signalIdle() {
	if !c.idleClosed {
		close(c.idle)
		c.idleClosed = true
	}
}

// Begin enters Draining. It reports whether this call made the transition.
func (c *Coordinator) Begin(reason string, cause error) bool {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return false
	}
	c.state = StateDraining
	c.reason, c.cause = reason, cause
	active := c.active
	close(c.draining)
	if active == 0 {
		c.signalIdle()
	}
	c.mu.Unlock()

	attrs := []any{"reason", reason, "active_streams", active}
	if cause != nil {
		attrs = append(attrs, "error", cause)
	}
	c.logger.Info("draining", attrs...)
	return true
}

// Wait blocks until draining has begun and every tracked stream has been
// released, then terminates. A stream tracked after draining began with
// nothing open is waited for too. If ctx ends first Wait terminates anyway
// and returns ctx's error; streams still open are abandoned.
func (c *Coordinator) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		idle := c.idle
		c.mu.Unlock()

		select {
		case <-idle:
			c.mu.Lock()
			done := c.active == 0
			if done {
				c.state = StateTerminated
			}
			c.mu.Unlock()
			if done {
				c.terminate()
				return nil
			}
		case <-ctx.Done():
			c.logger.Warn("drain deadline reached", "active_streams", c.Active())
			c.terminate()
			return ctx.Err()
		}
	}
}

func (c *Coordinator) terminate() {
	c.termOnce.Do(func() {
		c.mu.Lock()
		c.state = StateTerminated
		c.mu.Unlock()
		close(c.terminated)
		c.logger.Info("terminated")
	})
}

// NotifySignals begins draining when the process receives one of sigs
// (SIGINT and SIGTERM by default). Call stop to unregister.
func (c *Coordinator) NotifySignals(sigs ...os.Signal) (stop func()) {
	if len(sigs) == 0 {
		sigs = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, sigs...)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-ch:
				if !c.Begin("signal "+sig.String(), nil) {
					c.logger.Info("already draining", "signal", sig.String())
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
}

// Middleware tracks every request for the duration of its handler and
// refuses requests after termination.
func (c *Coordinator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		release, ok := c.Track()
		if !ok {
			w.Header().Set("Connection", "close")
			http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
			return
		}
		defer release()
		next.ServeHTTP(w, r)
	})
}
