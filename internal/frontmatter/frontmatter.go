// Package frontmatter separates a dash-delimited front-matter block from the
// body of a content file.
package frontmatter

import (
	"errors"
	"regexp"
	"strings"
)

// ErrMissingClosingDelimiter indicates the document opened a front-matter block
// but never closed it with the same delimiter line.
var ErrMissingClosingDelimiter = errors.New("front matter opening delimiter found but closing delimiter is missing")

var delimRe = regexp.MustCompile(`^-{3,}\s*$`)

// Status describes the outcome of a split.
type Status int

const (
	// StatusNone means no front matter was present; the whole text is body.
	StatusNone Status = iota
	// StatusValid means a complete front-matter block was found.
	StatusValid
	// StatusCorrupt means an opening delimiter had no matching closer.
	StatusCorrupt
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusValid:
		return "valid"
	case StatusCorrupt:
		return "corrupt"
	default:
		return "unknown"
	}
}

// Document is the result of splitting raw file text.
type Document struct {
	Front  string
	Body   string
	Status Status
}

// HasFrontMatter reports whether an opening delimiter was found.
func (d Document) HasFrontMatter() bool {
	return d.Status != StatusNone
}

// Valid reports whether the front matter, if any, was properly closed.
func (d Document) Valid() bool {
	return d.Status != StatusCorrupt
}

// Split separates front matter from body.
//
// Leading blank lines are skipped. The first non-blank line must consist of
// three or more dashes to open a front-matter block; the block is closed by
// the first later line with identical text. Everything after the closing line
// is returned verbatim as the body. If the first non-blank line is not a
// delimiter the whole text is body. If the block is never closed, Split
// returns the whole text as body together with ErrMissingClosingDelimiter.
func Split(text string) (Document, error) {
	pos := 0
	for pos < len(text) {
		line, next := nextLine(text, pos)
		if strings.TrimSpace(line) != "" {
			break
		}
		pos = next
	}
	if pos >= len(text) {
		return Document{Body: text, Status: StatusNone}, nil
	}

	opener, next := nextLine(text, pos)
	opener = strings.TrimRight(opener, "\r")
	if !delimRe.MatchString(opener) {
		return Document{Body: text, Status: StatusNone}, nil
	}
	want := strings.TrimSpace(opener)

	var front []string
	pos = next
	for pos < len(text) {
		line, next := nextLine(text, pos)
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == want && delimRe.MatchString(line) {
			return Document{
				Front:  strings.Join(front, "\n"),
				Body:   text[next:],
				Status: StatusValid,
			}, nil
		}
		front = append(front, line)
		pos = next
	}

	return Document{Body: text, Status: StatusCorrupt}, ErrMissingClosingDelimiter
}

// nextLine returns the line starting at pos (without its newline) and the
// offset of the following line.
func nextLine(text string, pos int) (string, int) {
	i := strings.IndexByte(text[pos:], '\n')
	if i < 0 {
		return text[pos:], len(text)
	}
	return text[pos : pos+i], pos + i + 1
}
