package types

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Mark is a reference to a taxonomy term such as a tag or category.
type Mark struct {
	Title string `json:"title"`
	Key   string `json:"key"`
}

func (m Mark) String() string { return m.Title }

// MarkKey returns the lookup key for a mark title: lowercase letters
// and digits separated by single dashes, with diacritics removed.
func MarkKey(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

func convertMark(raw any, ctx *Context) (any, error) {
	title := strings.TrimSpace(asText(raw))
	key := MarkKey(title)
	if key == "" {
		return nil, convErr(ctx, raw, "mark title has no letters or digits")
	}
	return Mark{Title: title, Key: key}, nil
}
