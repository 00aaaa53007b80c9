// Package render serializes VNode trees into row streams.
//
// The Renderer writes HTML5 markup for a tree to an io.Writer:
//
//   - Text and attribute values are escaped
//   - Void elements (input, br, img, ...) have no closing tag
//   - Boolean attributes are written as bare names
//   - Attributes are sorted for deterministic output
//
// Async nodes are resolved while rendering. Before awaiting one the renderer
// flushes what it has written so far, so the prefix reaches the client while
// the subtree loads.
//
// The Engine wraps a Renderer in a stream.Producer that frames output as
// protocol rows: an optional result row first, then markup rows, and an error
// row if rendering fails after output started.
//
//	engine := render.NewEngine(render.Config{}, logger)
//	p := engine.Render(ctx, render.ActionInput(root, result))
//
// # Security
//
// All text content is escaped. KindRaw nodes and the
// dangerouslySetInnerHTML prop bypass escaping and must only carry trusted
// markup.
package render
