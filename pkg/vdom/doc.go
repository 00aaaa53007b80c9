// Package vdom defines the renderable node tree consumed by the streaming
// render engine.
//
// Nodes are plain values built with element helpers:
//
//	root := vdom.Div(vdom.Class("ship"),
//	    vdom.H1("Ships"),
//	    vdom.Async(func(ctx context.Context) (*vdom.VNode, error) {
//	        return loadResults(ctx)
//	    }),
//	)
//
// Async nodes are resolved by the renderer when it reaches them. They receive
// the render context, so request-scoped data travels into deferred reads.
package vdom
