package fields

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/starford/synamic/internal/frontmatter"
	"github.com/starford/synamic/internal/markup"
	"github.com/starford/synamic/internal/model"
	"github.com/starford/synamic/internal/syd"
	"github.com/starford/synamic/internal/types"
)

func mustTree(t *testing.T, src string) *syd.Container {
	t.Helper()
	tree, err := syd.Parse(src)
	if err != nil {
		t.Fatalf("syd.Parse: %v", err)
	}
	return tree
}

func mustModel(t *testing.T, src string) *model.Model {
	t.Helper()
	m, err := model.Parse("test", src)
	if err != nil {
		t.Fatalf("model.Parse: %v", err)
	}
	return m
}

func TestResolve_EndToEnd(t *testing.T) {
	text := "---\ntitle: Hello\ntags: a, b, c\n---\n# Body\nSome *markdown*.\n"

	doc, err := frontmatter.Split(text)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	tree := mustTree(t, doc.Front)
	reg := types.Default()
	m := mustModel(t, "title: string\ntags: string[]")
	if err := m.Bind(reg); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	r, err := Resolve(tree, doc.Body, m, reg)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got, _ := r.Get("title"); got != "Hello" {
		t.Errorf("title = %v, want Hello", got)
	}
	if got, _ := r.Get("tags"); !reflect.DeepEqual(got, []any{"a", "b", "c"}) {
		t.Errorf("tags = %#v", got)
	}

	body, ok := r.Body().(*markup.Markdown)
	if !ok {
		t.Fatalf("body type = %T, want *markup.Markdown", r.Body())
	}
	if body.Source != "# Body\nSome *markdown*.\n" {
		t.Errorf("body source = %q", body.Source)
	}
	html, err := body.HTML()
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	if !strings.Contains(html, "<h1>Body</h1>") || !strings.Contains(html, "<em>markdown</em>") {
		t.Errorf("body html = %q", html)
	}
	if got := r.Keys(); !reflect.DeepEqual(got, []string{"title", "tags"}) {
		t.Errorf("keys = %v", got)
	}
}

func TestResolve_FallbackText(t *testing.T) {
	tree := mustTree(t, "extra: 007\nnote: some text")
	r, err := Resolve(tree, "", model.Empty("none"), types.Default())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got, _ := r.Get("extra"); got != "007" {
		t.Errorf("extra = %#v, want \"007\"", got)
	}
	if got := r.Type("note"); got != types.Text {
		t.Errorf("type = %q, want text", got)
	}
	if _, ok := r.Body().(*markup.Markdown); !ok {
		t.Errorf("default body type = %T", r.Body())
	}
}

func TestResolve_NumericTextKeepsSource(t *testing.T) {
	tree := mustTree(t, "zip: 01234\ncode: 007\nprice: 1.50\nversion: 2.10\nrating: 007\nday: 2024-5-01\nids: (01, 02)\n")
	m := mustModel(t, "zip: string\nversion: string\nrating: number\nday: date\nids: string[]")
	r, err := Resolve(tree, "", m, types.Default())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for key, want := range map[string]any{
		"zip":     "01234",
		"code":    "007",
		"price":   "1.50",
		"version": "2.10",
		"rating":  int64(7),
	} {
		if got, _ := r.Get(key); got != want {
			t.Errorf("%s = %#v, want %#v", key, got, want)
		}
	}
	if got, _ := r.Get("ids"); !reflect.DeepEqual(got, []any{"01", "02"}) {
		t.Errorf("ids = %#v", got)
	}
	day, _ := r.Get("day")
	if d, ok := day.(time.Time); !ok || d.Month() != time.May || d.Day() != 1 {
		t.Errorf("day = %#v", day)
	}
}

func TestResolve_DottedPaths(t *testing.T) {
	tree := mustTree(t, "author {\n    name: Jane\n    age: 41\n    site {\n        url: http://x\n    }\n}\nlinks [\n    a\n    b\n]\n")
	m := mustModel(t, "author.age: number\nlinks: string[]")
	r, err := Resolve(tree, "", m, types.Default())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []string{"author.name", "author.age", "author.site.url", "links"}
	if got := r.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}
	if got, _ := r.Get("author.age"); got != int64(41) {
		t.Errorf("age = %#v", got)
	}
	if got, _ := r.Get("links"); !reflect.DeepEqual(got, []any{"a", "b"}) {
		t.Errorf("links = %#v", got)
	}
}

func TestResolve_DuplicateKeys(t *testing.T) {
	tree := mustTree(t, "chapter: one\nchapter: two")
	r, err := Resolve(tree, "", nil, types.Default())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got, _ := r.Get("chapter"); got != "two" {
		t.Errorf("Get = %v, want two", got)
	}
	if got := r.Multi("chapter"); !reflect.DeepEqual(got, []any{"one", "two"}) {
		t.Errorf("Multi = %v", got)
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestResolve_BodyType(t *testing.T) {
	m := mustModel(t, "__body__: html")
	r, err := Resolve(nil, "<p>x</p>", m, types.Default())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, ok := r.Body().(*markup.HTML); !ok {
		t.Errorf("body = %T, want *markup.HTML", r.Body())
	}
	if r.Type(model.BodyKey) != "html" {
		t.Errorf("body type = %q", r.Type(model.BodyKey))
	}
}

func TestResolve_ConversionError(t *testing.T) {
	tree := mustTree(t, "\ncount: many")
	m := mustModel(t, "count: number")
	_, err := Resolve(tree, "", m, types.Default())
	if !errors.Is(err, types.ErrConversion) {
		t.Fatalf("err = %v, want ErrConversion", err)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("err %q lacks line number", err)
	}
}

func TestResolve_UnknownModelType(t *testing.T) {
	tree := mustTree(t, "x: 1")
	m := mustModel(t, "x: bogus")
	if _, err := Resolve(tree, "", m, types.Default()); !errors.Is(err, types.ErrUnknownType) {
		t.Errorf("err = %v, want ErrUnknownType", err)
	}
}

func TestResolved_Accessors(t *testing.T) {
	r, err := Resolve(mustTree(t, "a: 1"), "", nil, types.Default())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !r.Has("a") || r.Has("b") {
		t.Error("Has mismatch")
	}
	if got := r.GetOr("b", "dflt"); got != "dflt" {
		t.Errorf("GetOr = %v", got)
	}
	if !r.Has(model.BodyKey) {
		t.Error("body missing")
	}
}

func TestResolved_MarshalJSON(t *testing.T) {
	m := mustModel(t, "n: number")
	r, err := Resolve(mustTree(t, "z: last\nn: 3"), "hi", m, types.Default())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got := string(b)
	if !strings.HasPrefix(got, `{"z":"last","n":3,"__body__":{"source":"hi","html":`) {
		t.Errorf("json = %s", got)
	}
}
