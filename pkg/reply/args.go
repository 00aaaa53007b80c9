package reply

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/mitchellh/mapstructure"

	"github.com/vango-dev/shipyard/pkg/upload"
)

// Arg is one decoded argument.
type Arg struct {
	Name  string
	Value any
}

// Args are the positional arguments of an action call.
type Args []Arg

// Values returns the argument values in order.
func (a Args) Values() []any {
	out := make([]any, len(a))
	for i, arg := range a {
		out[i] = arg.Value
	}
	return out
}

// At returns the i-th argument value, or nil.
func (a Args) At(i int) any {
	if i < 0 || i >= len(a) {
		return nil
	}
	return a[i].Value
}

// Get returns the first argument named name.
func (a Args) Get(name string) (any, bool) {
	for _, arg := range a {
		if arg.Name == name {
			return arg.Value, true
		}
	}
	return nil, false
}

// String returns the named argument formatted as a string, or "".
func (a Args) String(name string) string {
	v, ok := a.Get(name)
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// File returns the named argument if it is a file.
func (a Args) File(name string) (*upload.File, bool) {
	v, ok := a.Get(name)
	if !ok {
		return nil, false
	}
	f, ok := v.(*upload.File)
	return f, ok
}

// Bind copies named arguments into the struct pointed to by out. Fields are
// matched by their `arg` tag, falling back to the field name; scalar values
// are converted where sensible ("42" into an int field).
func (a Args) Bind(out any) error {
	m := make(map[string]any, len(a))
	for _, arg := range a {
		if _, dup := m[arg.Name]; !dup {
			m[arg.Name] = arg.Value
		}
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "arg",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("reply: bind: %w", err)
	}
	if err := dec.Decode(m); err != nil {
		return fmt.Errorf("reply: bind: %w", err)
	}
	return nil
}

// Close closes every file argument, including files nested in JSON values.
func (a Args) Close() error {
	var errs []error
	for _, f := range a.files() {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a Args) files() []*upload.File {
	seen := make(map[*upload.File]bool)
	var out []*upload.File
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case *upload.File:
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		case []any:
			for _, e := range t {
				walk(e)
			}
		case map[string]any:
			for _, e := range t {
				walk(e)
			}
		}
	}
	for _, arg := range a {
		walk(arg.Value)
	}
	return out
}
