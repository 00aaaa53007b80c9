package vdom

// voidElements are elements that cannot have children.
var voidElements = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"param":  true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// IsVoidElement returns true if the tag is a void element.
func IsVoidElement(tag string) bool {
	return voidElements[tag]
}

// El creates an element with an arbitrary tag.
func El(tag string, args ...any) *VNode {
	return createElement(tag, args)
}

// createElement creates a new VNode with the given tag and arguments.
// Arguments can be: nil, Attr, []Attr, *VNode, []*VNode, Component, string.
func createElement(tag string, args []any) *VNode {
	node := &VNode{
		Kind:     KindElement,
		Tag:      tag,
		Props:    make(Props),
		Children: make([]*VNode, 0),
	}

	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
			continue
		case Attr:
			node.setAttr(v)
		case []Attr:
			for _, attr := range v {
				node.setAttr(attr)
			}
		case *VNode:
			if v != nil {
				node.Children = append(node.Children, v)
			}
		case []*VNode:
			for _, child := range v {
				if child != nil {
					node.Children = append(node.Children, child)
				}
			}
		case Component:
			node.Children = append(node.Children, &VNode{
				Kind: KindComponent,
				Comp: v,
			})
		case string:
			node.Children = append(node.Children, Text(v))
		}
	}

	return node
}

func (v *VNode) setAttr(attr Attr) {
	if attr.IsEmpty() {
		return
	}
	if attr.Key == "key" {
		if s, ok := attr.Value.(string); ok {
			v.Key = s
		}
		return
	}
	v.Props[attr.Key] = attr.Value
}

// Document structure

func Html(args ...any) *VNode   { return createElement("html", args) }
func Head(args ...any) *VNode   { return createElement("head", args) }
func Body(args ...any) *VNode   { return createElement("body", args) }
func Title(args ...any) *VNode  { return createElement("title", args) }
func Meta(args ...any) *VNode   { return createElement("meta", args) }
func Script(args ...any) *VNode { return createElement("script", args) }

// Sectioning and text content

func Main(args ...any) *VNode    { return createElement("main", args) }
func Section(args ...any) *VNode { return createElement("section", args) }
func Header(args ...any) *VNode  { return createElement("header", args) }
func H1(args ...any) *VNode      { return createElement("h1", args) }
func H2(args ...any) *VNode      { return createElement("h2", args) }
func Div(args ...any) *VNode     { return createElement("div", args) }
func P(args ...any) *VNode       { return createElement("p", args) }
func Span(args ...any) *VNode    { return createElement("span", args) }
func Ul(args ...any) *VNode      { return createElement("ul", args) }
func Li(args ...any) *VNode      { return createElement("li", args) }
func Dl(args ...any) *VNode      { return createElement("dl", args) }
func Dt(args ...any) *VNode      { return createElement("dt", args) }
func Dd(args ...any) *VNode      { return createElement("dd", args) }
func A(args ...any) *VNode       { return createElement("a", args) }
func Strong(args ...any) *VNode  { return createElement("strong", args) }
func Img(args ...any) *VNode     { return createElement("img", args) }
func Br(args ...any) *VNode      { return createElement("br", args) }

// Forms

func Form(args ...any) *VNode   { return createElement("form", args) }
func Input(args ...any) *VNode  { return createElement("input", args) }
func Button(args ...any) *VNode { return createElement("button", args) }
func Label(args ...any) *VNode  { return createElement("label", args) }
