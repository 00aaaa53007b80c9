package vdom

import "context"

// VKind is the node type discriminator.
type VKind uint8

const (
	KindElement   VKind = iota // <div>, <button>, etc.
	KindText                   // Plain text node
	KindFragment               // Grouping without wrapper
	KindComponent              // Nested component
	KindRaw                    // Raw HTML (dangerous)
	KindAsync                  // Deferred subtree resolved at render time
)

// String returns the string representation of the VKind.
func (k VKind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindFragment:
		return "Fragment"
	case KindComponent:
		return "Component"
	case KindRaw:
		return "Raw"
	case KindAsync:
		return "Async"
	default:
		return "Unknown"
	}
}

// VNode is a node of the render tree.
type VNode struct {
	Kind     VKind     // Node type
	Tag      string    // Element tag name (e.g., "div")
	Props    Props     // Attributes
	Children []*VNode  // Child nodes
	Key      string    // Stable identity among siblings
	Text     string    // For KindText and KindRaw
	Comp     Component // For KindComponent
	Load     AsyncFunc // For KindAsync
}

// Props holds element attributes.
type Props map[string]any

// Attr represents a single attribute.
type Attr struct {
	Key   string
	Value any
}

// IsEmpty returns true if this is an empty/nil attribute.
func (a Attr) IsEmpty() bool {
	return a.Key == ""
}

// Component is anything that can render to a VNode.
type Component interface {
	Render() *VNode
}

// FuncComponent wraps a render function.
type FuncComponent struct {
	render func() *VNode
}

// Render implements Component.
func (f *FuncComponent) Render() *VNode {
	return f.render()
}

// Func creates a component from a render function.
func Func(render func() *VNode) Component {
	return &FuncComponent{render: render}
}

// AsyncFunc produces a subtree that may need I/O. It must honor ctx.
type AsyncFunc func(ctx context.Context) (*VNode, error)

// Async creates a node whose children are loaded when the renderer reaches it.
func Async(load AsyncFunc) *VNode {
	return &VNode{
		Kind: KindAsync,
		Load: load,
	}
}
