// Package fields resolves a parsed front-matter tree against a model,
// producing the typed field values of a document.
package fields

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/starford/synamic/internal/model"
	"github.com/starford/synamic/internal/syd"
	"github.com/starford/synamic/internal/types"
)

// Fallback types for fields the model does not name.
const (
	FallbackType = types.Text
	BodyType     = types.Markdown
)

// Resolved holds converted field values by dotted key in document order.
// A key that appears more than once keeps every value; Get returns the last.
type Resolved struct {
	keys   []string
	values map[string][]any
	types  map[string]string
	body   any
}

func newResolved() *Resolved {
	return &Resolved{values: make(map[string][]any), types: make(map[string]string)}
}

// Resolve converts every leaf of tree with the converter the model names
// for its dotted path, falling back to text. Lists are leaves. body is
// converted with the model's __body__ type, or markdown.
//
// Required and unique modifiers are not checked here.
func Resolve(tree *syd.Container, body string, m *model.Model, reg *types.Registry) (*Resolved, error) {
	r := newResolved()
	if tree != nil {
		if err := r.walk(tree, "", m, reg); err != nil {
			return nil, err
		}
	}

	conv, typ, err := converterFor(model.BodyKey, BodyType, m, reg)
	if err != nil {
		return nil, err
	}
	v, err := conv(body, &types.Context{Field: model.BodyKey, Type: typ, Registry: reg})
	if err != nil {
		return nil, err
	}
	r.body = v
	r.types[model.BodyKey] = typ
	return r, nil
}

func (r *Resolved) walk(c *syd.Container, prefix string, m *model.Model, reg *types.Registry) error {
	for _, ch := range c.Children() {
		path := ch.Key()
		if prefix != "" {
			path = prefix + "." + path
		}
		if path == model.BodyKey {
			continue
		}

		var raw any
		switch n := ch.(type) {
		case *syd.Container:
			if !n.IsList() {
				if err := r.walk(n, path, m, reg); err != nil {
					return err
				}
				continue
			}
			raw = listSource(n)
		case *syd.Scalar:
			raw = scalarSource(n)
		default:
			continue
		}

		conv, typ, err := converterFor(path, FallbackType, m, reg)
		if err != nil {
			return err
		}
		v, err := conv(raw, &types.Context{Field: path, Type: typ, Registry: reg})
		if err != nil {
			return fmt.Errorf("fields: line %d: %w", ch.Line(), err)
		}
		r.add(path, typ, v)
	}
	return nil
}

// scalarSource is what a converter sees for s: the source text for numbers
// and dates, so leading and trailing zeros survive, and the unquoted,
// interpolated value for strings.
func scalarSource(s *syd.Scalar) any {
	switch s.Kind() {
	case syd.KindInt, syd.KindFloat, syd.KindDate, syd.KindTime, syd.KindDateTime:
		return s.Raw()
	}
	return s.Value()
}

func listSource(c *syd.Container) []any {
	children := c.Children()
	out := make([]any, len(children))
	for i, ch := range children {
		if s, ok := ch.(*syd.Scalar); ok {
			out[i] = scalarSource(s)
			continue
		}
		out[i] = ch.Interface()
	}
	return out
}

// converterFor prefers a converter bound on the model field, then the
// registry entry for the field's type, then fallback.
func converterFor(path, fallback string, m *model.Model, reg *types.Registry) (types.Converter, string, error) {
	if m != nil {
		if f, ok := m.Get(path); ok {
			if f.Converter != nil {
				return f.Converter, f.Type, nil
			}
			c, err := reg.Get(f.Type)
			return c, f.Type, err
		}
	}
	c, err := reg.Get(fallback)
	return c, fallback, err
}

func (r *Resolved) add(key, typ string, v any) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = append(r.values[key], v)
	r.types[key] = typ
}

// Get returns the last value for key. The body is available under
// "__body__".
func (r *Resolved) Get(key string) (any, bool) {
	if key == model.BodyKey {
		return r.body, true
	}
	vs := r.values[key]
	if len(vs) == 0 {
		return nil, false
	}
	return vs[len(vs)-1], true
}

// GetOr returns the value for key or def.
func (r *Resolved) GetOr(key string, def any) any {
	if v, ok := r.Get(key); ok {
		return v
	}
	return def
}

// Has reports whether key was present in the document.
func (r *Resolved) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Multi returns every value for key in document order.
func (r *Resolved) Multi(key string) []any {
	vs := r.values[key]
	out := make([]any, len(vs))
	copy(out, vs)
	return out
}

// Keys returns the field keys in document order, without the body.
func (r *Resolved) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Type returns the type name the value of key was converted with.
func (r *Resolved) Type(key string) string { return r.types[key] }

func (r *Resolved) Body() any { return r.body }

func (r *Resolved) Len() int { return len(r.keys) }

// MarshalJSON writes the fields as an object in document order, last value
// per key, followed by "__body__".
func (r *Resolved) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(k string, v any) error {
		kb, err := json.Marshal(k)
		if err != nil {
			return err
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("fields: marshal %q: %w", k, err)
		}
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		return nil
	}
	for _, k := range r.keys {
		v, _ := r.Get(k)
		if err := write(k, v); err != nil {
			return nil, err
		}
	}
	if err := write(model.BodyKey, r.body); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
