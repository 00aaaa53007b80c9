// Package shipyard serves streamed renders and server actions over HTTP.
//
// An App wires the pieces under pkg/ into one http.Handler:
//
//	GET  /rsc/{routeParam}     stream the page for the route and ?search= state
//	POST /action/{routeParam}  invoke the action named by the rsc-action header,
//	                           then stream the page with its result injected
//	GET  /live/{routeParam}    the same render over a websocket
//	GET  /metrics              Prometheus exposition
//	HEAD /                     liveness
//	GET  /*                    static files, then the HTML shell
//
// Create an App with shipyard.New and serve it with Serve, which drains open
// streams before returning:
//
//	registry := action.NewRegistry()
//	demo.Register(registry)
//	app := shipyard.New(shipyard.Config{
//	    Static: shipyard.StaticConfig{Dir: "public"},
//	}, registry, demo.Root)
//
//	stop := app.Coordinator().NotifySignals()
//	defer stop()
//	err := app.ListenAndServe(ctx, ":3000")
package shipyard

// Version is the build version, set with -ldflags.
var Version = "dev"

const (
	// ActionHeader carries the action reference on POST /action.
	ActionHeader = "rsc-action"

	// RouteParam is the chi URL parameter holding the route state.
	RouteParam = "routeParam"
)
