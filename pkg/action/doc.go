// Package action resolves client-supplied action references to server
// functions.
//
// A reference has the form "modulePath#exportName". Modules are registered
// by path, either eagerly or through a Loader that runs on first use; the
// loaded export table is cached for the life of the process.
//
// Only exports wrapped with Server are invocable. A loadable, callable export
// without that marker is refused with ErrUntrustedAction, so a client cannot
// reach helpers that happen to live in an action module:
//
//	reg := action.NewRegistry()
//	reg.RegisterModule("actions.js", action.Module{
//	    "search":  action.Server(search),
//	    "reindex": reindex, // not published
//	})
//
// The marker is a minimum bar. For a stronger boundary, configure a Manifest:
// references outside it are refused before any module is loaded.
package action
