// Package content loads content files end to end: front matter split, Syd
// parse, model selection and field resolution.
package content

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/synamic/internal/apperr"
	"github.com/starford/synamic/internal/checksum"
	"github.com/starford/synamic/internal/fields"
	"github.com/starford/synamic/internal/frontmatter"
	"github.com/starford/synamic/internal/markup"
	"github.com/starford/synamic/internal/model"
	"github.com/starford/synamic/internal/storage"
	"github.com/starford/synamic/internal/syd"
	"github.com/starford/synamic/internal/types"
)

const (
	// Ext is the extension of content files.
	Ext = ".md"
	// ModelKey names the front-matter key that selects a model.
	ModelKey = "model"
)

var ErrRequiredField = errors.New("content: required field missing")

// Document is a fully resolved content file.
type Document struct {
	Path     string
	Checksum string
	Model    string
	Title    string
	Tree     *syd.Container
	Fields   *fields.Resolved
	Marks    []MarkRef
	Unique   []UniqueValue
}

// MarkRef is a mark found in a field of a document.
type MarkRef struct {
	Field string
	types.Mark
}

// UniqueValue is the value of a field the model declares unique.
type UniqueValue struct {
	Field string
	Value string
}

// BodyText returns the body without markup.
func (d *Document) BodyText() string {
	switch b := d.Fields.Body().(type) {
	case *markup.Markdown:
		return b.PlainText()
	case *markup.HTML:
		return b.PlainText()
	case string:
		return b
	}
	return ""
}

// BodySource returns the body as written.
func (d *Document) BodySource() string {
	if s, ok := d.Fields.Body().(fmt.Stringer); ok {
		return s.String()
	}
	if s, ok := d.Fields.Body().(string); ok {
		return s
	}
	return ""
}

// Loader turns content files into Documents.
type Loader struct {
	store  storage.Provider
	models *ModelSet
	reg    *types.Registry
}

// NewLoader creates a loader reading content from store.
func NewLoader(store storage.Provider, models *ModelSet, reg *types.Registry) *Loader {
	return &Loader{store: store, models: models, reg: reg}
}

// Load reads and resolves the content file at path.
func (l *Loader) Load(path string) (*Document, error) {
	data, err := l.store.Read(path)
	if err != nil {
		return nil, err
	}
	return l.Parse(path, data)
}

// Parse resolves data as the content file at path. Every failure caused by
// the file itself wraps apperr.ErrInvalid.
func (l *Loader) Parse(path string, data []byte) (*Document, error) {
	split, err := frontmatter.Split(string(data))
	if err != nil {
		return nil, invalid(path, err)
	}

	tree := syd.NewBlock(syd.RootKey)
	if split.HasFrontMatter() {
		tree, err = syd.Parse(split.Front)
		if err != nil {
			return nil, invalid(path, err)
		}
	}

	name := tree.String(ModelKey, model.DefaultName)
	m, err := l.models.Get(name)
	if err != nil {
		return nil, invalid(path, err)
	}

	resolved, err := fields.Resolve(tree, split.Body, m, l.reg)
	if err != nil {
		return nil, invalid(path, err)
	}
	if err := checkRequired(m, resolved); err != nil {
		return nil, invalid(path, fmt.Errorf("%w: %w", ErrRequiredField, err))
	}

	return &Document{
		Path:     path,
		Checksum: checksum.Sum(data),
		Model:    m.Name,
		Title:    deriveTitle(resolved, split.Body),
		Tree:     tree,
		Fields:   resolved,
		Marks:    collectMarks(resolved),
		Unique:   collectUnique(m, resolved),
	}, nil
}

func invalid(path string, err error) error {
	return fmt.Errorf("content: %s: %w: %w", path, apperr.ErrInvalid, err)
}

func checkRequired(m *model.Model, r *fields.Resolved) error {
	errs := validation.Errors{}
	for _, f := range m.Fields() {
		if !f.Required {
			continue
		}
		v, _ := r.Get(f.Key)
		errs[f.Key] = validation.Validate(emptiable(v), validation.Required)
	}
	return errs.Filter()
}

// emptiable maps field values onto something validation.Required can judge.
func emptiable(v any) any {
	switch x := v.(type) {
	case *markup.Markdown:
		return strings.TrimSpace(x.Source)
	case *markup.HTML:
		return strings.TrimSpace(x.Source)
	case types.Mark:
		return x.Key
	case string:
		return strings.TrimSpace(x)
	case int64, float64:
		// Zero is a value, not an absence.
		return true
	}
	return v
}

// deriveTitle returns the title field if set, otherwise the first H1
// heading of the body.
func deriveTitle(r *fields.Resolved, body string) string {
	if s, ok := r.GetOr("title", "").(string); ok && s != "" {
		return s
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

func collectMarks(r *fields.Resolved) []MarkRef {
	var out []MarkRef
	add := func(field string, v any) {
		if mk, ok := v.(types.Mark); ok {
			out = append(out, MarkRef{Field: field, Mark: mk})
		}
	}
	for _, k := range r.Keys() {
		for _, v := range r.Multi(k) {
			if list, ok := v.([]any); ok {
				for _, item := range list {
					add(k, item)
				}
				continue
			}
			add(k, v)
		}
	}
	return out
}

func collectUnique(m *model.Model, r *fields.Resolved) []UniqueValue {
	var out []UniqueValue
	for _, f := range m.Fields() {
		if !f.Unique {
			continue
		}
		v, ok := r.Get(f.Key)
		if !ok || f.Key == model.BodyKey {
			continue
		}
		s := fmt.Sprint(v)
		if mk, ok := v.(types.Mark); ok {
			s = mk.Key
		}
		if s == "" {
			continue
		}
		out = append(out, UniqueValue{Field: f.Key, Value: s})
	}
	return out
}
