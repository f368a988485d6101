package content

import (
	"errors"
	"reflect"
	"testing"

	"github.com/starford/synamic/internal/apperr"
	"github.com/starford/synamic/internal/frontmatter"
	"github.com/starford/synamic/internal/model"
	"github.com/starford/synamic/internal/storage"
	"github.com/starford/synamic/internal/syd"
	"github.com/starford/synamic/internal/types"
)

func testSite(t *testing.T) (content, models *storage.FS) {
	t.Helper()
	c, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	m, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return c, m
}

func testLoader(t *testing.T, modelFiles map[string]string) (*Loader, *storage.FS) {
	t.Helper()
	cs, ms := testSite(t)
	for name, src := range modelFiles {
		if err := ms.Write(name+ModelExt, []byte(src)); err != nil {
			t.Fatalf("Write model: %v", err)
		}
	}
	reg := types.Default()
	return NewLoader(cs, NewModelSet(ms, reg), reg), cs
}

func TestLoad_DefaultModel(t *testing.T) {
	l, cs := testLoader(t, nil)
	_ = cs.Write("hello.md", []byte("---\ntitle: Hello\ntags: (Go, Site Tools)\ncreated: 2024-05-01 9:00 AM\n---\nBody text\n"))

	doc, err := l.Load("hello.md")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Model != model.DefaultName {
		t.Errorf("model = %q, want %q", doc.Model, model.DefaultName)
	}
	if doc.Title != "Hello" {
		t.Errorf("title = %q", doc.Title)
	}
	if doc.Checksum == "" {
		t.Error("empty checksum")
	}
	wantMarks := []MarkRef{
		{Field: "tags", Mark: types.Mark{Title: "Go", Key: "go"}},
		{Field: "tags", Mark: types.Mark{Title: "Site Tools", Key: "site-tools"}},
	}
	if !reflect.DeepEqual(doc.Marks, wantMarks) {
		t.Errorf("marks = %+v", doc.Marks)
	}
	if got := doc.BodyText(); got != "Body text" {
		t.Errorf("body text = %q", got)
	}
	if got := doc.BodySource(); got != "Body text\n" {
		t.Errorf("body source = %q", got)
	}
}

func TestLoad_UserModel(t *testing.T) {
	l, cs := testLoader(t, map[string]string{
		"post": "slug: string | required | unique\nrating: number\n__body__: html",
	})
	_ = cs.Write("p.md", []byte("---\nmodel: post\nslug: first\nrating: 4\n---\n<p>hi</p>"))

	doc, err := l.Load("p.md")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Model != "post" {
		t.Errorf("model = %q", doc.Model)
	}
	if got, _ := doc.Fields.Get("rating"); got != int64(4) {
		t.Errorf("rating = %#v", got)
	}
	if !reflect.DeepEqual(doc.Unique, []UniqueValue{{Field: "slug", Value: "first"}}) {
		t.Errorf("unique = %+v", doc.Unique)
	}
	if doc.BodyText() != "hi" {
		t.Errorf("body text = %q", doc.BodyText())
	}
}

func TestLoad_RequiredField(t *testing.T) {
	l, cs := testLoader(t, map[string]string{"post": "slug: string | required"})
	_ = cs.Write("p.md", []byte("---\nmodel: post\ntitle: x\n---\n"))

	_, err := l.Load("p.md")
	if !errors.Is(err, ErrRequiredField) {
		t.Fatalf("err = %v, want ErrRequiredField", err)
	}
	if !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}

func TestLoad_RequiredZeroNumber(t *testing.T) {
	l, cs := testLoader(t, map[string]string{"post": "weight: number | required"})
	_ = cs.Write("p.md", []byte("---\nmodel: post\nweight: 0\n---\n"))
	if _, err := l.Load("p.md"); err != nil {
		t.Errorf("Load: %v", err)
	}
}

func TestLoad_CorruptFrontMatter(t *testing.T) {
	l, cs := testLoader(t, nil)
	_ = cs.Write("bad.md", []byte("---\ntitle: x\nno closer"))

	_, err := l.Load("bad.md")
	if !errors.Is(err, apperr.ErrInvalid) || !errors.Is(err, frontmatter.ErrMissingClosingDelimiter) {
		t.Errorf("err = %v", err)
	}
}

func TestLoad_SydError(t *testing.T) {
	l, cs := testLoader(t, nil)
	_ = cs.Write("bad.md", []byte("---\ntitle: x\nblock {\n---\n"))

	_, err := l.Load("bad.md")
	var perr *syd.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *syd.ParseError", err)
	}
	if perr.Line != 2 {
		t.Errorf("line = %d, want 2", perr.Line)
	}
}

func TestLoad_NoFrontMatterTitleFromHeading(t *testing.T) {
	l, cs := testLoader(t, nil)
	_ = cs.Write("plain.md", []byte("# From Heading\n\ntext"))

	doc, err := l.Load("plain.md")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Title != "From Heading" {
		t.Errorf("title = %q", doc.Title)
	}
	if doc.Fields.Len() != 0 {
		t.Errorf("fields = %v", doc.Fields.Keys())
	}
}

func TestModelSet_CachesAndResets(t *testing.T) {
	_, ms := testSite(t)
	_ = ms.Write("a.model", []byte("x: number"))
	set := NewModelSet(ms, types.Default())

	m1, err := set.Get("a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	m2, _ := set.Get("a")
	if m1 != m2 {
		t.Error("expected cached model")
	}
	if f, _ := m1.Get("x"); f.Type != "number" || f.Converter == nil {
		t.Errorf("x = %+v", f)
	}
	if _, ok := m1.Get("title"); !ok {
		t.Error("system field missing")
	}

	_ = ms.Write("a.model", []byte("x: date"))
	set.Reset()
	m3, _ := set.Get("a")
	if f, _ := m3.Get("x"); f.Type != "date" {
		t.Errorf("after reset x = %+v", f)
	}
}

func TestModelSet_Errors(t *testing.T) {
	_, ms := testSite(t)
	_ = ms.Write("broken.model", []byte("no colon here"))
	_ = ms.Write("unknown.model", []byte("x: nosuch"))
	set := NewModelSet(ms, types.Default())

	var perr *model.ParseError
	if _, err := set.Get("broken"); !errors.As(err, &perr) {
		t.Errorf("broken err = %v", err)
	}
	if _, err := set.Get("unknown"); !errors.Is(err, types.ErrUnknownType) {
		t.Errorf("unknown err = %v", err)
	}
	if _, err := set.Get("../etc"); err == nil {
		t.Error("expected error for invalid name")
	}
	if m, err := set.Get("missing"); err != nil || m.Name != "missing" {
		t.Errorf("missing = %v, %v", m, err)
	}
}
