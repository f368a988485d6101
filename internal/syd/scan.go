package syd

import "strings"

type lineKind uint8

const (
	lineBlank lineKind = iota
	lineComment
	lineCloseBlock
	lineCloseList
	lineData
)

// line is one source line after scanning. The scanner never looks past a
// single line; structure is recovered by the parser.
type line struct {
	num  int    // 1-based
	raw  string // without line terminator
	text string // trimmed
	kind lineKind
}

func scan(src string) []line {
	parts := strings.Split(src, "\n")
	lines := make([]line, len(parts))
	for i, p := range parts {
		raw := strings.TrimSuffix(p, "\r")
		text := strings.TrimSpace(raw)
		lines[i] = line{num: i + 1, raw: raw, text: text, kind: classify(text)}
	}
	return lines
}

func classify(text string) lineKind {
	switch {
	case text == "":
		return lineBlank
	case isComment(text):
		return lineComment
	case text == "}":
		return lineCloseBlock
	case text == "]":
		return lineCloseList
	default:
		return lineData
	}
}

func isComment(text string) bool {
	return strings.HasPrefix(text, "#") || strings.HasPrefix(text, "//")
}

// blankOrComment reports whether what follows an opening bracket may be
// ignored.
func blankOrComment(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || isComment(s)
}
