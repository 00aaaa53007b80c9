package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/vango-dev/shipyard/pkg/vdom"
)

// Renderer writes VNode trees as HTML.
type Renderer struct {
	flush func() error
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithFlush sets the function called before the renderer blocks on an
// async subtree.
func WithFlush(flush func() error) Option {
	return func(r *Renderer) {
		r.flush = flush
	}
}

// NewRenderer creates a Renderer.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RenderToString renders a VNode tree to a string.
func (r *Renderer) RenderToString(ctx context.Context, node *vdom.VNode) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToWriter(ctx, &buf, node); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToWriter streams a VNode tree to w. It returns ctx's error if ctx
// ends while an async subtree is loading.
func (r *Renderer) RenderToWriter(ctx context.Context, w io.Writer, node *vdom.VNode) error {
	return r.renderNode(ctx, w, node)
}

func (r *Renderer) renderNode(ctx context.Context, w io.Writer, node *vdom.VNode) error {
	if node == nil {
		return nil
	}

	switch node.Kind {
	case vdom.KindElement:
		return r.renderElement(ctx, w, node)
	case vdom.KindText:
		_, err := io.WriteString(w, escapeHTML(node.Text))
		return err
	case vdom.KindFragment:
		return r.renderChildren(ctx, w, node.Children)
	case vdom.KindComponent:
		if node.Comp == nil {
			return nil
		}
		return r.renderNode(ctx, w, node.Comp.Render())
	case vdom.KindRaw:
		_, err := io.WriteString(w, node.Text)
		return err
	case vdom.KindAsync:
		return r.renderAsync(ctx, w, node)
	default:
		return fmt.Errorf("render: unknown node kind: %d", node.Kind)
	}
}

func (r *Renderer) renderChildren(ctx context.Context, w io.Writer, children []*vdom.VNode) error {
	for _, child := range children {
		if err := r.renderNode(ctx, w, child); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) renderElement(ctx context.Context, w io.Writer, node *vdom.VNode) error {
	if _, err := io.WriteString(w, "<"+node.Tag); err != nil {
		return err
	}
	if err := r.renderAttributes(w, node.Props); err != nil {
		return err
	}
	if _, err := io.WriteString(w, ">"); err != nil {
		return err
	}

	if vdom.IsVoidElement(node.Tag) {
		return nil
	}

	if inner, ok := node.Props["dangerouslySetInnerHTML"].(string); ok {
		if _, err := io.WriteString(w, inner); err != nil {
			return err
		}
	} else if err := r.renderChildren(ctx, w, node.Children); err != nil {
		return err
	}

	_, err := io.WriteString(w, "</"+node.Tag+">")
	return err
}

type loadResult struct {
	node *vdom.VNode
	err  error
}

// renderAsync flushes pending output, then waits for the subtree or ctx.
func (r *Renderer) renderAsync(ctx context.Context, w io.Writer, node *vdom.VNode) error {
	if node.Load == nil {
		return nil
	}
	if r.flush != nil {
		if err := r.flush(); err != nil {
			return err
		}
	}

	done := make(chan loadResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- loadResult{err: fmt.Errorf("render: async subtree panicked: %v", p)}
			}
		}()
		child, err := node.Load(ctx)
		done <- loadResult{node: child, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return res.err
		}
		return r.renderNode(ctx, w, res.node)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Renderer) renderAttributes(w io.Writer, props vdom.Props) error {
	if len(props) == 0 {
		return nil
	}

	keys := make([]string, 0, len(props))
	for key := range props {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := props[key]

		// Internal props and handlers never reach markup.
		if strings.HasPrefix(key, "_") || key == "key" || key == "dangerouslySetInnerHTML" {
			continue
		}
		if isFunc(value) {
			continue
		}
		if alias, ok := propAliases[key]; ok {
			key = alias
		}

		if b, ok := value.(bool); ok && isBooleanAttr(key) {
			if b {
				if _, err := io.WriteString(w, " "+key); err != nil {
					return err
				}
			}
			continue
		}

		s := attrToString(value)
		if s == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, ` %s="%s"`, key, escapeAttr(s)); err != nil {
			return err
		}
	}
	return nil
}

func isFunc(value any) bool {
	return value != nil && reflect.TypeOf(value).Kind() == reflect.Func
}

func attrToString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
