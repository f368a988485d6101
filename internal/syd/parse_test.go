package syd

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func mustParse(t *testing.T, src string) *Container {
	t.Helper()
	root, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return root
}

func scalar(t *testing.T, c *Container, key string) *Scalar {
	t.Helper()
	n, ok := c.Get(key)
	if !ok {
		t.Fatalf("key %q missing", key)
	}
	s, ok := n.(*Scalar)
	if !ok {
		t.Fatalf("key %q is %T, want *Scalar", key, n)
	}
	return s
}

func TestParse_Empty(t *testing.T) {
	root := mustParse(t, "")
	if root.Key() != RootKey {
		t.Errorf("root key = %q", root.Key())
	}
	if root.Len() != 0 {
		t.Errorf("len = %d, want 0", root.Len())
	}
	if !root.ReadOnly() {
		t.Error("root should be frozen")
	}
}

func TestParse_DuplicateKeys(t *testing.T) {
	root := mustParse(t, "a: 1\na: 2")
	if got := root.Value("a", nil); got != int64(2) {
		t.Errorf("get(a) = %v, want 2", got)
	}
	multi := root.GetMulti("a")
	if len(multi) != 2 {
		t.Fatalf("len(multi) = %d, want 2", len(multi))
	}
	if multi[0].Interface() != int64(1) || multi[1].Interface() != int64(2) {
		t.Errorf("multi = %v, %v", multi[0].Interface(), multi[1].Interface())
	}
	if keys := root.Keys(); !reflect.DeepEqual(keys, []string{"a"}) {
		t.Errorf("keys = %v", keys)
	}
}

func TestParse_NumberNormalization(t *testing.T) {
	root := mustParse(t, "i: 007\nf: 007.50\nn: -12\ns: 1.2.3")
	if s := scalar(t, root, "i"); s.Kind() != KindInt || s.Value() != int64(7) {
		t.Errorf("i = %v (%s)", s.Value(), s.Kind())
	}
	if s := scalar(t, root, "f"); s.Kind() != KindFloat || s.Value() != 7.5 {
		t.Errorf("f = %v (%s)", s.Value(), s.Kind())
	}
	if s := scalar(t, root, "n"); s.Value() != int64(-12) {
		t.Errorf("n = %v", s.Value())
	}
	if s := scalar(t, root, "s"); s.Kind() != KindString || s.Value() != "1.2.3" {
		t.Errorf("s = %v (%s)", s.Value(), s.Kind())
	}
	if s := scalar(t, root, "i"); s.Raw() != "007" {
		t.Errorf("raw = %q", s.Raw())
	}
}

func TestParse_DateTimeKinds(t *testing.T) {
	root := mustParse(t, "d: 2024-01-05\nt: 10:30\nt2: 9:05:01 PM\ndt: 2024-01-05 10:30:00 AM")
	cases := map[string]Kind{"d": KindDate, "t": KindTime, "t2": KindTime, "dt": KindDateTime}
	for key, want := range cases {
		s := scalar(t, root, key)
		if s.Kind() != want {
			t.Errorf("%s kind = %s, want %s", key, s.Kind(), want)
		}
		if _, ok := s.Value().(string); !ok {
			t.Errorf("%s value should stay text, got %T", key, s.Value())
		}
	}
}

func TestParse_QuotedStrings(t *testing.T) {
	src := `a: "42"
b: 'it\'s'
c: "line\none\ttab"
d: 'no\nescape'
e:   padded value   `
	root := mustParse(t, src)
	want := map[string]string{
		"a": "42",
		"b": "it's",
		"c": "line\none\ttab",
		"d": `no\nescape`,
		"e": "padded value",
	}
	for key, w := range want {
		s := scalar(t, root, key)
		if s.Kind() != KindString || s.Value() != w {
			t.Errorf("%s = %q (%s), want %q", key, s.Value(), s.Kind(), w)
		}
	}
}

func TestParse_KeyGrammar(t *testing.T) {
	root := mustParse(t, "no_colon value here\n_x:1\nempty:\nbare")
	if got := root.String("no_colon", ""); got != "value here" {
		t.Errorf("no_colon = %q", got)
	}
	if got := root.Value("_x", nil); got != int64(1) {
		t.Errorf("_x = %v", got)
	}
	if got := root.String("empty", "x"); got != "" {
		t.Errorf("empty = %q", got)
	}
	if !root.Has("bare") {
		t.Error("bare key missing")
	}
}

func TestParse_Comments(t *testing.T) {
	src := "# heading\n  // indented\na: 1 # not a comment\n"
	root := mustParse(t, src)
	if root.Len() != 1 {
		t.Fatalf("len = %d, want 1", root.Len())
	}
	if got := root.String("a", ""); got != "1 # not a comment" {
		t.Errorf("a = %q", got)
	}
}

func TestParse_NestedBlocksAndLists(t *testing.T) {
	src := `
author: {
    name: Jane
    links [  # trailing comment
        https://example.org
        {
            kind: mail
        }
    ]
}
chapter {
    title: One
}
chapter {
    title: Two
}
`
	root := mustParse(t, src)
	n, ok := root.Lookup("author.name")
	if !ok || n.Interface() != "Jane" {
		t.Fatalf("author.name = %v, %v", n, ok)
	}
	links, ok := root.Lookup("author.links")
	if !ok {
		t.Fatal("author.links missing")
	}
	lc := links.(*Container)
	if !lc.IsList() || lc.Len() != 2 {
		t.Fatalf("links list = %v len %d", lc.IsList(), lc.Len())
	}
	if lc.Children()[0].Interface() != "https://example.org" {
		t.Errorf("links[0] = %v", lc.Children()[0].Interface())
	}
	inner := lc.Children()[1].(*Container)
	if inner.String("kind", "") != "mail" {
		t.Errorf("links[1].kind = %q", inner.String("kind", ""))
	}
	if inner.Parent() != lc || lc.Parent().Key() != "author" {
		t.Error("parent references not set")
	}

	chapters := root.GetMulti("chapter")
	if len(chapters) != 2 {
		t.Fatalf("chapters = %d, want 2", len(chapters))
	}
	if got := chapters[1].(*Container).String("title", ""); got != "Two" {
		t.Errorf("chapter[1].title = %q", got)
	}
}

func TestParse_MultilineDedent(t *testing.T) {
	src := "k~ {\n    line one\n      line two\n}"
	root := mustParse(t, src)
	if got := root.String("k", ""); got != "line one\n  line two" {
		t.Errorf("k = %q", got)
	}
}

func TestParse_MultilineVerbatim(t *testing.T) {
	src := "k~~ {\n    line one\n      line two\n}"
	root := mustParse(t, src)
	if got := root.String("k", ""); got != "    line one\n      line two" {
		t.Errorf("k = %q", got)
	}
}

func TestParse_MultilineTabsAndBlankLines(t *testing.T) {
	src := "k~: {  // note\n\tfirst\n\n    \t  second\n}\n"
	root := mustParse(t, src)
	// Minimum width is 4 (the tab); the second line loses exactly 4 spaces.
	if got := root.String("k", ""); got != "first\n\n\t  second" {
		t.Errorf("k = %q", got)
	}
}

func TestParse_MultilineEscapedBrace(t *testing.T) {
	root := mustParse(t, "code~ {\n    func() {\n    \\}\n}\nraw~~~ {\n\\}\n}")
	if got := root.String("code", ""); got != "func() {\n}" {
		t.Errorf("code = %q", got)
	}
	if got := root.String("raw", ""); got != `\}` {
		t.Errorf("raw = %q", got)
	}
}

func TestParse_MultilineKeepsCommentLookalikes(t *testing.T) {
	root := mustParse(t, "md~ {\n  # Heading\n  text\n}")
	if got := root.String("md", ""); got != "# Heading\ntext" {
		t.Errorf("md = %q", got)
	}
}

func TestParse_InlineList(t *testing.T) {
	root := mustParse(t, `k: (1, 2, 3)
s: (a,, b, c\, d, "e, f", )
e: ()`)
	k, _ := root.Get("k")
	if got := k.Interface(); !reflect.DeepEqual(got, []any{int64(1), int64(2), int64(3)}) {
		t.Errorf("k = %#v", got)
	}
	s, _ := root.Get("s")
	want := []any{"a, b", "c, d", "e, f", ""}
	if got := s.Interface(); !reflect.DeepEqual(got, want) {
		t.Errorf("s = %#v, want %#v", got, want)
	}
	e, _ := root.Get("e")
	if e.(*Container).Len() != 0 {
		t.Errorf("e len = %d", e.(*Container).Len())
	}
}

func TestParse_Interpolation(t *testing.T) {
	root := mustParse(t, "a: 5\nb: value is ${a}")
	if got := root.String("b", ""); got != "value is 5" {
		t.Errorf("b = %q", got)
	}
}

func TestParse_InterpolationForwardChainAndEscape(t *testing.T) {
	src := "greeting: hello ${name}\nname: ${first} Doe\nfirst: Jane\nlit: cost $${amount}"
	root := mustParse(t, src)
	if got := root.String("greeting", ""); got != "hello Jane Doe" {
		t.Errorf("greeting = %q", got)
	}
	if got := root.String("lit", ""); got != "cost ${amount}" {
		t.Errorf("lit = %q", got)
	}
	if s := scalar(t, root, "greeting"); s.Raw() != "hello ${name}" {
		t.Errorf("raw = %q", s.Raw())
	}
}

func TestParse_InterpolationScopedToParent(t *testing.T) {
	src := "a: outer\nblock {\n    a: inner\n    b: ${a}\n}"
	root := mustParse(t, src)
	n, _ := root.Lookup("block.b")
	if n.Interface() != "inner" {
		t.Errorf("block.b = %v", n.Interface())
	}
}

func TestParse_InterpolationErrors(t *testing.T) {
	cases := []string{
		"a: ${a}",
		"a: ${missing}",
		"x {\n    y: 1\n}\na: ${x}",
		"d: 2024-01-01\na: ${d}",
		"a: ${b}\nb: ${a}",
	}
	for _, src := range cases {
		_, err := Parse(src)
		if !errors.Is(err, ErrInterpolation) {
			t.Errorf("Parse(%q) err = %v, want ErrInterpolation", src, err)
		}
	}
}

func TestParse_SyntaxErrors(t *testing.T) {
	cases := []struct {
		src  string
		line int
	}{
		{"a: 1\n-bad line", 2},
		{"a {\n  b: 1\n", 1},
		{"}", 1},
		{"a [\n  x\n}", 3},
		{"a: { x", 1},
		{"a: {", 1},
		{"a: [1, 2]", 1},
		{"abc-def", 1},
		{"tags(a, b)", 1},
		{"k~ x", 1},
		{"k~ {\n  never closed", 1},
		{"k~~~~ {\n}", 1},
	}
	for _, c := range cases {
		_, err := Parse(c.src)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("Parse(%q) err = %v, want *ParseError", c.src, err)
			continue
		}
		if !errors.Is(err, ErrSyntax) {
			t.Errorf("Parse(%q) should wrap ErrSyntax", c.src)
		}
		if pe.Line != c.line {
			t.Errorf("Parse(%q) line = %d, want %d (%v)", c.src, pe.Line, c.line, err)
		}
	}
}

func TestParseError_CarriesStateStack(t *testing.T) {
	_, err := Parse("a {\n  b [\n    }\n  ]\n}")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v", err)
	}
	want := []State{StateBlock, StateBlock, StateList}
	if !reflect.DeepEqual(pe.States, want) {
		t.Errorf("states = %v, want %v", pe.States, want)
	}
	if pe.Text != "    }" {
		t.Errorf("text = %q", pe.Text)
	}
}

func TestContainer_FrozenAfterParse(t *testing.T) {
	root := mustParse(t, "a {\n  b: 1\n}")
	n, _ := root.Get("a")
	if err := n.(*Container).Add(NewScalar("c", KindInt, "2", int64(2))); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Add on frozen = %v, want ErrReadOnly", err)
	}
}

func TestContainer_MarshalJSONKeepsOrder(t *testing.T) {
	root := mustParse(t, "z: 1\na: x\nz: 2\nl: (1, two)\nb {\n  k: v\n}")
	out, err := json.Marshal(root)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"z":2,"a":"x","l":[1,"two"],"b":{"k":"v"}}`
	if string(out) != want {
		t.Errorf("json = %s, want %s", out, want)
	}
}

func TestContainer_ToMap(t *testing.T) {
	root := mustParse(t, "a: 1\nb {\n  c: (x, y)\n}")
	got := root.ToMap()
	want := map[string]any{
		"a": int64(1),
		"b": map[string]any{"c": []any{"x", "y"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ToMap = %#v", got)
	}
}
