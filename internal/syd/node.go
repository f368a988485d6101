package syd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RootKey is the key of the container returned by Parse.
const RootKey = "__root__"

// Kind classifies a scalar value.
type Kind uint8

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindDate
	KindTime
	KindDateTime
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindDateTime:
		return "datetime"
	default:
		return "unknown"
	}
}

// Node is either a *Scalar or a *Container.
type Node interface {
	// Key is empty for list items.
	Key() string
	// Line is the 1-based source line the node started on, 0 if built in code.
	Line() int
	// Parent is nil for a root or detached node. It never implies ownership.
	Parent() *Container
	// Interface converts the node to plain Go values.
	Interface() any

	setParent(c *Container)
}

// Scalar is a leaf value. Its Value is never a list or mapping.
//
// Value holds a string for KindString, KindDate, KindTime and KindDateTime,
// an int64 for KindInt and a float64 for KindFloat. Date and time kinds are
// tagged text; calendar semantics belong to the converter layer.
type Scalar struct {
	key    string
	kind   Kind
	raw    string
	value  any
	line   int
	parent *Container

	// pending is set while the string still contains unresolved ${...}.
	pending bool
}

// NewScalar builds a detached scalar.
func NewScalar(key string, kind Kind, raw string, value any) *Scalar {
	return &Scalar{key: key, kind: kind, raw: raw, value: value}
}

func (s *Scalar) Key() string { return s.key }
func (s *Scalar) Line() int { return s.line }
func (s *Scalar) Parent() *Container { return s.parent }
func (s *Scalar) setParent(c *Container) { s.parent = c }

// Kind returns the inferred kind.
func (s *Scalar) Kind() Kind { return s.kind }

// Raw returns the source text the value was inferred from.
func (s *Scalar) Raw() string { return s.raw }

// Value returns the typed value.
func (s *Scalar) Value() any { return s.value }

// Interface implements Node.
func (s *Scalar) Interface() any { return s.value }

// String formats the value as text.
func (s *Scalar) String() string {
	switch v := s.value.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// MarshalJSON encodes the typed value.
func (s *Scalar) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.value)
}

// Container is a block (keyed children) or a list (ordered unkeyed children).
// It exclusively owns its children.
type Container struct {
	key      string
	list     bool
	children []Node
	index    map[string][]int
	line     int
	parent   *Container
	readOnly bool
}

// NewBlock builds an empty block container.
func NewBlock(key string) *Container {
	return &Container{key: key, index: make(map[string][]int)}
}

// NewList builds an empty list container.
func NewList(key string) *Container {
	return &Container{key: key, list: true}
}

func (c *Container) Key() string { return c.key }
func (c *Container) Line() int { return c.line }
func (c *Container) Parent() *Container { return c.parent }
func (c *Container) setParent(p *Container) { c.parent = p }

// IsList reports whether c is a list.
func (c *Container) IsList() bool { return c.list }

// ReadOnly reports whether c has been frozen.
func (c *Container) ReadOnly() bool { return c.readOnly }

// Len returns the number of children, duplicates included.
func (c *Container) Len() int { return len(c.children) }

// Children returns the children in insertion order.
func (c *Container) Children() []Node {
	out := make([]Node, len(c.children))
	copy(out, c.children)
	return out
}

// Add appends n and makes c its parent.
func (c *Container) Add(n Node) error {
	if c.readOnly {
		return ErrReadOnly
	}
	n.setParent(c)
	c.children = append(c.children, n)
	if !c.list {
		k := n.Key()
		c.index[k] = append(c.index[k], len(c.children)-1)
	}
	return nil
}

// Freeze marks c and every descendant read-only.
func (c *Container) Freeze() {
	c.readOnly = true
	for _, ch := range c.children {
		if cc, ok := ch.(*Container); ok {
			cc.Freeze()
		}
	}
}

// Get returns the last child added under key. Lists have no keys.
func (c *Container) Get(key string) (Node, bool) {
	if c.list {
		return nil, false
	}
	pos := c.index[key]
	if len(pos) == 0 {
		return nil, false
	}
	return c.children[pos[len(pos)-1]], true
}

// GetMulti returns every child added under key in insertion order.
func (c *Container) GetMulti(key string) []Node {
	if c.list {
		return nil
	}
	pos := c.index[key]
	out := make([]Node, 0, len(pos))
	for _, i := range pos {
		out = append(out, c.children[i])
	}
	return out
}

// Has reports whether key is present.
func (c *Container) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Keys returns the distinct keys of a block in order of first appearance.
func (c *Container) Keys() []string {
	if c.list {
		return nil
	}
	seen := make(map[string]struct{}, len(c.index))
	out := make([]string, 0, len(c.index))
	for _, ch := range c.children {
		k := ch.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Lookup resolves a dotted key ("a.b.c") through nested blocks.
func (c *Container) Lookup(dotted string) (Node, bool) {
	parts := strings.Split(dotted, ".")
	cur := c
	for i, part := range parts {
		n, ok := cur.Get(part)
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return n, true
		}
		next, ok := n.(*Container)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

// Value returns the plain value stored under key, or def when absent.
func (c *Container) Value(key string, def any) any {
	n, ok := c.Get(key)
	if !ok {
		return def
	}
	return n.Interface()
}

// String returns the scalar under key formatted as text, or def when key is
// absent or holds a container.
func (c *Container) String(key, def string) string {
	n, ok := c.Get(key)
	if !ok {
		return def
	}
	s, ok := n.(*Scalar)
	if !ok {
		return def
	}
	return s.String()
}

// Interface returns map[string]any for a block (last value wins for
// duplicate keys) and []any for a list.
func (c *Container) Interface() any {
	if c.list {
		out := make([]any, len(c.children))
		for i, ch := range c.children {
			out[i] = ch.Interface()
		}
		return out
	}
	return c.ToMap()
}

// ToMap converts a block to a map. A list converts to an empty map.
func (c *Container) ToMap() map[string]any {
	out := make(map[string]any, len(c.index))
	if c.list {
		return out
	}
	for _, k := range c.Keys() {
		n, _ := c.Get(k)
		out[k] = n.Interface()
	}
	return out
}

// MarshalJSON encodes blocks as objects in key order and lists as arrays.
func (c *Container) MarshalJSON() ([]byte, error) {
	if c.list {
		if len(c.children) == 0 {
			return []byte("[]"), nil
		}
		return json.Marshal(c.children)
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range c.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		n, _ := c.Get(k)
		vb, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
