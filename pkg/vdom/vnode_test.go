package vdom

import (
	"context"
	"testing"
)

func TestVKindString(t *testing.T) {
	tests := []struct {
		kind VKind
		want string
	}{
		{KindElement, "Element"},
		{KindText, "Text"},
		{KindFragment, "Fragment"},
		{KindComponent, "Component"},
		{KindRaw, "Raw"},
		{KindAsync, "Async"},
		{VKind(255), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("VKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestCreateElementArgs(t *testing.T) {
	comp := Func(func() *VNode { return Text("c") })
	node := Div(
		nil,
		Class("card"),
		[]Attr{ID("main"), Key("k1")},
		P("hello"),
		[]*VNode{Span(), nil},
		comp,
		"tail",
	)

	if node.Kind != KindElement || node.Tag != "div" {
		t.Fatalf("node = %v %q, want div element", node.Kind, node.Tag)
	}
	if node.Props["class"] != "card" || node.Props["id"] != "main" {
		t.Errorf("props = %v", node.Props)
	}
	if _, ok := node.Props["key"]; ok {
		t.Error("key must not be stored as a prop")
	}
	if node.Key != "k1" {
		t.Errorf("Key = %q, want k1", node.Key)
	}
	if len(node.Children) != 4 {
		t.Fatalf("children = %d, want 4", len(node.Children))
	}
	if node.Children[2].Kind != KindComponent {
		t.Errorf("child 2 kind = %v, want Component", node.Children[2].Kind)
	}
	if node.Children[3].Kind != KindText || node.Children[3].Text != "tail" {
		t.Errorf("child 3 = %+v, want text tail", node.Children[3])
	}
}

func TestAsyncNode(t *testing.T) {
	node := Async(func(ctx context.Context) (*VNode, error) {
		return Text("loaded"), nil
	})
	if node.Kind != KindAsync {
		t.Fatalf("kind = %v, want Async", node.Kind)
	}
	got, err := node.Load(context.Background())
	if err != nil || got.Text != "loaded" {
		t.Fatalf("Load() = %v, %v", got, err)
	}
}

func TestRangeAndIf(t *testing.T) {
	items := []string{"a", "b", "skip"}
	nodes := Range(items, func(s string, i int) *VNode {
		return If(s != "skip", Li(s))
	})
	if len(nodes) != 2 {
		t.Fatalf("Range produced %d nodes, want 2", len(nodes))
	}

	frag := Fragment(nodes, nil, "x")
	if len(frag.Children) != 3 {
		t.Errorf("fragment children = %d, want 3", len(frag.Children))
	}
	if !IsVoidElement("br") || IsVoidElement("div") {
		t.Error("void element table mismatch")
	}
}
