package syd

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	numberRe   = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	dateRe     = regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}$`)
	timeRe     = regexp.MustCompile(`^\d{1,2}:\d{1,2}(:\d{1,2})?(\s*[AaPp][Mm])?$`)
	dateTimeRe = regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}\s+\d{1,2}:\d{1,2}(:\d{1,2})?(\s*[AaPp][Mm])?$`)
)

// inferScalar classifies inline text. Quoted text is always a string;
// otherwise number, then datetime, date and time, then bare string.
func inferScalar(key, text string) *Scalar {
	text = strings.TrimSpace(text)

	if q, body, ok := quoted(text); ok {
		v := unquote(body, q)
		return &Scalar{key: key, kind: KindString, raw: text, value: v, pending: hasInterpolation(v)}
	}

	if numberRe.MatchString(text) {
		if strings.Contains(text, ".") {
			if f, err := strconv.ParseFloat(text, 64); err == nil {
				return &Scalar{key: key, kind: KindFloat, raw: text, value: f}
			}
		} else if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return &Scalar{key: key, kind: KindInt, raw: text, value: n}
		}
	}

	switch {
	case dateTimeRe.MatchString(text):
		return &Scalar{key: key, kind: KindDateTime, raw: text, value: text}
	case dateRe.MatchString(text):
		return &Scalar{key: key, kind: KindDate, raw: text, value: text}
	case timeRe.MatchString(text):
		return &Scalar{key: key, kind: KindTime, raw: text, value: text}
	}

	return &Scalar{key: key, kind: KindString, raw: text, value: text, pending: hasInterpolation(text)}
}

// quoted reports whether text is a complete '...' or "..." literal.
func quoted(text string) (byte, string, bool) {
	if len(text) < 2 {
		return 0, "", false
	}
	q := text[0]
	if q != '"' && q != '\'' {
		return 0, "", false
	}
	if text[len(text)-1] != q {
		return 0, "", false
	}
	body := text[1 : len(text)-1]
	// The closing quote must not itself be escaped.
	if trailingBackslashes(body)%2 == 1 {
		return 0, "", false
	}
	return q, body, true
}

func trailingBackslashes(s string) int {
	n := 0
	for i := len(s) - 1; i >= 0 && s[i] == '\\'; i-- {
		n++
	}
	return n
}

func unquote(body string, q byte) string {
	if !strings.ContainsRune(body, '\\') {
		return body
	}
	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		ch := body[i]
		if ch != '\\' || i+1 >= len(body) {
			b.WriteByte(ch)
			continue
		}
		next := body[i+1]
		switch {
		case next == q:
			b.WriteByte(q)
		case q == '"' && next == 'n':
			b.WriteByte('\n')
		case q == '"' && next == 'r':
			b.WriteByte('\r')
		case q == '"' && next == 't':
			b.WriteByte('\t')
		default:
			b.WriteByte('\\')
			b.WriteByte(next)
		}
		i++
	}
	return b.String()
}

// splitInlineList splits the inside of (...) on commas. A comma preceded by
// a backslash or written twice is literal; commas inside quotes are literal.
func splitInlineList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var (
		items []string
		cur   strings.Builder
		quote byte
	)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			cur.WriteByte(ch)
			if ch == '\\' && i+1 < len(s) {
				i++
				cur.WriteByte(s[i])
				continue
			}
			if ch == quote {
				quote = 0
			}
		case ch == '\\' && i+1 < len(s) && s[i+1] == ',':
			cur.WriteByte(',')
			i++
		case ch == ',' && i+1 < len(s) && s[i+1] == ',':
			cur.WriteByte(',')
			i++
		case ch == ',':
			items = append(items, strings.TrimSpace(cur.String()))
			cur.Reset()
		case (ch == '"' || ch == '\'') && strings.TrimSpace(cur.String()) == "":
			quote = ch
			cur.WriteByte(ch)
		default:
			cur.WriteByte(ch)
		}
	}
	return append(items, strings.TrimSpace(cur.String()))
}

// indentWidth measures leading whitespace, counting a tab as four columns.
func indentWidth(s string) int {
	w := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ':
			w++
		case '\t':
			w += 4
		default:
			return w
		}
	}
	return w
}

// stripIndent removes leading whitespace characters until width columns
// have been consumed. Tabs are never expanded.
func stripIndent(s string, width int) string {
	i, w := 0, 0
	for i < len(s) && w < width {
		switch s[i] {
		case ' ':
			w++
		case '\t':
			w += 4
		default:
			return s[i:]
		}
		i++
	}
	return s[i:]
}

// dedent removes the common indentation of the non-blank lines and joins
// the result with newlines.
func dedent(lines []string) string {
	least := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if w := indentWidth(l); least < 0 || w < least {
			least = w
		}
	}
	if least <= 0 {
		return strings.Join(lines, "\n")
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = stripIndent(l, least)
	}
	return strings.Join(out, "\n")
}
