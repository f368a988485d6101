package markup

import (
	"encoding/json"
	"strings"

	"golang.org/x/net/html"
)

// HTML is a raw HTML field value. The source is emitted unchanged.
type HTML struct {
	Source string
}

// NewHTML wraps src.
func NewHTML(src string) *HTML {
	return &HTML{Source: src}
}

// HTML returns the source.
func (h *HTML) HTML() (string, error) { return h.Source, nil }

// String returns the source.
func (h *HTML) String() string { return h.Source }

// PlainText returns the text nodes of the fragment, skipping script and
// style content.
func (h *HTML) PlainText() string {
	z := html.NewTokenizer(strings.NewReader(h.Source))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			if name, _ := z.TagName(); isRawText(string(name)) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isRawText(string(name)) && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

// Summary returns the first limit runes of the plain text.
func (h *HTML) Summary(limit int) string {
	return summarize(h.PlainText(), limit)
}

// MarshalJSON encodes {"source": ..., "html": ...}.
func (h *HTML) MarshalJSON() ([]byte, error) {
	return json.Marshal(rendered{Source: h.Source, HTML: h.Source})
}

func isRawText(tag string) bool {
	return tag == "script" || tag == "style"
}
