// Package markup holds the rich-text field values: Markdown sources rendered
// with goldmark and raw HTML fragments.
package markup

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

var (
	mdInstance goldmark.Markdown
	mdOnce     sync.Once
)

func md() goldmark.Markdown {
	mdOnce.Do(func() {
		mdInstance = goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.DefinitionList),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		)
	})
	return mdInstance
}

// Markdown is a Markdown field value. Rendering is done on first use.
type Markdown struct {
	Source string

	once sync.Once
	html string
	err  error
}

// NewMarkdown wraps src.
func NewMarkdown(src string) *Markdown {
	return &Markdown{Source: src}
}

// HTML renders the source. The result is cached.
func (m *Markdown) HTML() (string, error) {
	m.once.Do(func() {
		var buf bytes.Buffer
		m.err = md().Convert([]byte(m.Source), &buf)
		m.html = buf.String()
	})
	return m.html, m.err
}

// PlainText returns the text content with markup removed. Blocks are
// separated by newlines.
func (m *Markdown) PlainText() string {
	src := []byte(m.Source)
	doc := md().Parser().Parse(text.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument && b.Len() > 0 {
				if !strings.HasSuffix(b.String(), "\n") {
					b.WriteByte('\n')
				}
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(src))
			}
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			b.Write(node.Label(src))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// Summary returns the first limit runes of the plain text, cut at a word
// boundary when possible.
func (m *Markdown) Summary(limit int) string {
	return summarize(m.PlainText(), limit)
}

// String returns the source.
func (m *Markdown) String() string { return m.Source }

// MarshalJSON encodes {"source": ..., "html": ...}.
func (m *Markdown) MarshalJSON() ([]byte, error) {
	h, err := m.HTML()
	if err != nil {
		return nil, err
	}
	return json.Marshal(rendered{Source: m.Source, HTML: h})
}

type rendered struct {
	Source string `json:"source"`
	HTML   string `json:"html"`
}

func summarize(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)[:limit]
	cut := string(r)
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
