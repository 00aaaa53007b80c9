package vdom

import "fmt"

// Text creates a text node.
func Text(content string) *VNode {
	return &VNode{
		Kind: KindText,
		Text: content,
	}
}

// Textf creates a formatted text node.
func Textf(format string, args ...any) *VNode {
	return Text(fmt.Sprintf(format, args...))
}

// Raw creates an unescaped HTML node.
// Use with caution - can lead to XSS if content is user-provided.
func Raw(html string) *VNode {
	return &VNode{
		Kind: KindRaw,
		Text: html,
	}
}

// Fragment groups children without a wrapper element.
func Fragment(children ...any) *VNode {
	node := &VNode{
		Kind:     KindFragment,
		Children: make([]*VNode, 0),
	}

	for _, child := range children {
		switch v := child.(type) {
		case nil:
			continue
		case *VNode:
			if v != nil {
				node.Children = append(node.Children, v)
			}
		case []*VNode:
			for _, c := range v {
				if c != nil {
					node.Children = append(node.Children, c)
				}
			}
		case string:
			node.Children = append(node.Children, Text(v))
		case Component:
			node.Children = append(node.Children, &VNode{
				Kind: KindComponent,
				Comp: v,
			})
		}
	}

	return node
}

// Range maps a slice to nodes.
func Range[T any](items []T, fn func(item T, index int) *VNode) []*VNode {
	nodes := make([]*VNode, 0, len(items))
	for i, item := range items {
		if node := fn(item, i); node != nil {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

// If returns node when cond is true, nil otherwise.
func If(cond bool, node *VNode) *VNode {
	if cond {
		return node
	}
	return nil
}

// Attribute helpers

func AttrOf(key string, value any) Attr { return Attr{Key: key, Value: value} }
func Class(value string) Attr          { return Attr{Key: "class", Value: value} }
func ID(value string) Attr             { return Attr{Key: "id", Value: value} }
func Href(value string) Attr           { return Attr{Key: "href", Value: value} }
func Src(value string) Attr            { return Attr{Key: "src", Value: value} }
func Type(value string) Attr           { return Attr{Key: "type", Value: value} }
func Name(value string) Attr           { return Attr{Key: "name", Value: value} }
func Value(value string) Attr          { return Attr{Key: "value", Value: value} }
func Placeholder(value string) Attr    { return Attr{Key: "placeholder", Value: value} }
func Key(value string) Attr            { return Attr{Key: "key", Value: value} }
func Disabled(value bool) Attr         { return Attr{Key: "disabled", Value: value} }

// Data creates a data-* attribute.
func Data(key string, value any) Attr { return Attr{Key: "data-" + key, Value: value} }
