// Package model parses model definitions. A model names the type of each
// front-matter field by its dotted path:
//
//	# blog post
//	title: string | required
//	author.name: string
//	tags: mark[]
//	slug: string | required | unique
package model

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/synamic/internal/types"
)

// BodyKey is the model key for the document body.
const BodyKey = "__body__"

var keyRe = regexp.MustCompile(`^[a-z0-9_]+(\.[a-z0-9_]+)*$`)

// Field is one model entry. Converter is nil until the model is bound.
type Field struct {
	Key       string
	Type      string
	Required  bool
	Unique    bool
	Converter types.Converter
}

// Model is an ordered set of fields keyed by dotted path.
type Model struct {
	Name   string
	fields []Field
	index  map[string]int
	bound  bool
}

// Empty returns a model with no fields.
func Empty(name string) *Model {
	return &Model{Name: name, index: make(map[string]int)}
}

// ParseError reports a malformed model definition line.
type ParseError struct {
	Model   string
	Line    int
	Snippet string
	Msg     string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("model %s: line %d: %s: %q", e.Model, e.Line, e.Msg, e.Snippet)
}

// Parse parses a model definition. Blank lines and lines starting with # or
// // are skipped. Every other line is "key : type [| modifier]*"; the
// modifiers required and unique are recognized, others are ignored.
func Parse(name, text string) (*Model, error) {
	m := Empty(name)
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		perr := func(msg string) error {
			return &ParseError{Model: name, Line: i + 1, Snippet: line, Msg: msg}
		}

		key, rest, ok := strings.Cut(line, ":")
		if !ok {
			return nil, perr("expected 'key: type'")
		}
		key = strings.TrimSpace(key)
		if !keyRe.MatchString(key) {
			return nil, perr(fmt.Sprintf("invalid key %q", key))
		}

		parts := strings.Split(rest, "|")
		f := Field{Key: key, Type: strings.TrimSpace(parts[0])}
		if f.Type == "" {
			return nil, perr(fmt.Sprintf("missing type for %q", key))
		}
		for _, mod := range parts[1:] {
			switch strings.TrimSpace(mod) {
			case "required":
				f.Required = true
			case "unique":
				f.Unique = true
			}
		}
		m.Set(f)
	}
	return m, nil
}

// Set adds f or replaces the field with the same key in place.
func (m *Model) Set(f Field) {
	if i, ok := m.index[f.Key]; ok {
		m.fields[i] = f
		return
	}
	m.index[f.Key] = len(m.fields)
	m.fields = append(m.fields, f)
}

// Get returns the field for a dotted key.
func (m *Model) Get(key string) (Field, bool) {
	i, ok := m.index[key]
	if !ok {
		return Field{}, false
	}
	return m.fields[i], true
}

// Fields returns the fields in definition order.
func (m *Model) Fields() []Field {
	out := make([]Field, len(m.fields))
	copy(out, m.fields)
	return out
}

func (m *Model) Len() int { return len(m.fields) }

// Bound reports whether Bind has succeeded.
func (m *Model) Bound() bool { return m.bound }

// New returns a copy of m with the fields of each other model laid over it
// in order, so later models win for keys they share. m and others are not
// modified. The copy takes the name of the last non-empty other name and
// is unbound.
func (m *Model) New(others ...*Model) *Model {
	out := Empty(m.Name)
	for _, f := range m.fields {
		f.Converter = nil
		out.Set(f)
	}
	for _, o := range others {
		if o == nil {
			continue
		}
		if o.Name != "" {
			out.Name = o.Name
		}
		for _, f := range o.fields {
			f.Converter = nil
			out.Set(f)
		}
	}
	return out
}

// Bind resolves every field's converter in reg. After a successful Bind
// the model should be treated as read-only.
func (m *Model) Bind(reg *types.Registry) error {
	for i := range m.fields {
		c, err := reg.Get(m.fields[i].Type)
		if err != nil {
			return fmt.Errorf("model %s: field %q: %w", m.Name, m.fields[i].Key, err)
		}
		m.fields[i].Converter = c
	}
	m.bound = true
	return nil
}

// String renders m in definition syntax.
func (m *Model) String() string {
	var b strings.Builder
	for _, f := range m.fields {
		b.WriteString(f.Key)
		b.WriteString(": ")
		b.WriteString(f.Type)
		if f.Required {
			b.WriteString(" | required")
		}
		if f.Unique {
			b.WriteString(" | unique")
		}
		b.WriteByte('\n')
	}
	return b.String()
}
