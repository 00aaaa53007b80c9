package action

import (
	"context"
	"fmt"

	"github.com/vango-dev/shipyard/pkg/reply"
)

// Func is the signature of a server action. The returned value is encoded as
// JSON into the response stream.
type Func func(ctx context.Context, args reply.Args) (any, error)

// ServerAction is a function deliberately published as invocable by clients.
type ServerAction struct {
	fn Func
}

// Server marks fn as a server action.
func Server(fn Func) *ServerAction {
	return &ServerAction{fn: fn}
}

// Invoke runs the action. A panic inside the action is returned as an error.
func (a *ServerAction) Invoke(ctx context.Context, args reply.Args) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("action panicked: %v", p)
		}
	}()
	return a.fn(ctx, args)
}

// Module is the export table of an action module.
type Module map[string]any

// Loader loads a module on first use.
type Loader func(ctx context.Context) (Module, error)

// Resolved is an action ready to invoke.
type Resolved struct {
	Ref    Reference
	Action *ServerAction
}

// Invoke runs the resolved action.
func (r *Resolved) Invoke(ctx context.Context, args reply.Args) (any, error) {
	return r.Action.Invoke(ctx, args)
}
