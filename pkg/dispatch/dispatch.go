// Package dispatch runs server actions and renders their results.
//
// A dispatch resolves the action reference, decodes the request body into
// arguments, invokes the action and renders the application root with the
// action's return value injected. Every step runs inside the request's
// scope, so components rendered afterwards see the same route and search
// state as the request that triggered the action.
//
// Failures before rendering starts are returned as *Error and no stream is
// produced. Once invocation starts it runs to completion even if the client
// disconnects; only delivery of the response is abandoned.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/shipyard/pkg/action"
	"github.com/vango-dev/shipyard/pkg/render"
	"github.com/vango-dev/shipyard/pkg/reply"
	"github.com/vango-dev/shipyard/pkg/scope"
	"github.com/vango-dev/shipyard/pkg/stream"
	"github.com/vango-dev/shipyard/pkg/vdom"
)

// ErrActionInvocation marks errors returned (or panics raised) by the action.
var ErrActionInvocation = errors.New("dispatch: action invocation failed")

// Stage names the step a dispatch failed in.
type Stage string

const (
	StageResolve Stage = "resolve"
	StageDecode  Stage = "decode"
	StageInvoke  Stage = "invoke"
	StageRender  Stage = "render"
)

// Error is a dispatch failure that happened before any output.
type Error struct {
	Stage     Stage
	Reference string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("dispatch %s %q: %v", e.Stage, e.Reference, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// RootFunc builds the application root for the current scope.
type RootFunc func(ctx context.Context) (*vdom.VNode, error)

// Observer is told how each dispatch ended. outcome is "ok" or the failing
// stage.
type Observer interface {
	ActionDispatched(reference, outcome string, elapsed time.Duration)
}

// Dispatcher runs actions.
type Dispatcher struct {
	registry *action.Registry
	engine   *render.Engine
	root     RootFunc
	reply    reply.Config
	logger   *slog.Logger
	tracer   trace.Tracer
	observer Observer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithReplyConfig sets the argument decoding limits and upload store.
func WithReplyConfig(cfg reply.Config) Option {
	return func(d *Dispatcher) {
		d.reply = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithTracer sets the tracer used for dispatch spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(d *Dispatcher) {
		d.tracer = tracer
	}
}

// WithObserver reports dispatch outcomes to o.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		d.observer = o
	}
}

// New creates a Dispatcher.
func New(registry *action.Registry, engine *render.Engine, root RootFunc, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		engine:   engine,
		root:     root,
		reply:    reply.DefaultConfig(),
		logger:   slog.Default(),
		tracer:   otel.Tracer("shipyard"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs the action named by token with arguments decoded from body,
// then returns the render of the root with the action's result injected.
func (d *Dispatcher) Dispatch(ctx context.Context, token string, body io.Reader, header http.Header, sc scope.Scope) (p *stream.Producer, err error) {
	start := time.Now()
	ctx, span := d.tracer.Start(ctx, "shipyard.dispatch",
		trace.WithAttributes(
			attribute.String("shipyard.action", token),
			attribute.String("shipyard.route", sc.RouteParam),
		),
	)
	defer func() {
		outcome := "ok"
		var derr *Error
		if errors.As(err, &derr) {
			outcome = string(derr.Stage)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		if d.observer != nil {
			d.observer.ActionDispatched(token, outcome, time.Since(start))
		}
	}()

	return scope.Run(ctx, sc, func(ctx context.Context) (*stream.Producer, error) {
		return d.dispatch(ctx, token, body, header)
	})
}

func (d *Dispatcher) dispatch(ctx context.Context, token string, body io.Reader, header http.Header) (*stream.Producer, error) {
	resolved, err := d.registry.Resolve(ctx, token)
	if err != nil {
		return nil, &Error{Stage: StageResolve, Reference: token, Err: err}
	}

	args, err := reply.Decode(ctx, body, header, d.reply)
	if err != nil {
		return nil, &Error{Stage: StageDecode, Reference: token, Err: err}
	}
	defer args.Close()

	result, err := d.invoke(ctx, resolved, args)
	if err != nil {
		return nil, &Error{Stage: StageInvoke, Reference: token, Err: err}
	}

	root, err := d.root(ctx)
	if err != nil {
		return nil, &Error{Stage: StageRender, Reference: token, Err: &render.Error{Err: err}}
	}

	d.logger.Debug("action invoked", "action", token, "args", len(args))
	return d.engine.Render(ctx, render.ActionInput(root, result)), nil
}

// invoke runs the action detached from request cancellation.
func (d *Dispatcher) invoke(ctx context.Context, resolved *action.Resolved, args reply.Args) (any, error) {
	ctx, span := d.tracer.Start(context.WithoutCancel(ctx), "shipyard.action.invoke",
		trace.WithAttributes(attribute.String("shipyard.action", resolved.Ref.String())),
	)
	defer span.End()

	result, err := resolved.Invoke(ctx, args)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %w", ErrActionInvocation, err)
	}
	return result, nil
}
