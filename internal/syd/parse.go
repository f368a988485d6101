// Package syd parses Syd, the brace-delimited data language used for front
// matter and settings files.
//
// A document is a sequence of key lines:
//
//	title: Hello world
//	count 3
//	tags: (go, parsing, "a, b")
//	author {
//	    name: Jane
//	    site: https://example.org
//	}
//	chapters [
//	    one
//	    two
//	]
//	intro~ {
//	    Multiline text; the common indentation is removed.
//	}
//
// Whole lines starting with # or // are comments. Keys may repeat; Get
// returns the last value and GetMulti all of them. String values may refer
// to sibling keys with ${name}; $${name} is left as literal ${name}.
package syd

import (
	"fmt"
	"regexp"
	"strings"
)

// keyLineRe: identifier, up to three tildes, optional colon, remainder.
var keyLineRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)(~{1,3})?[ \t]*(:)?(.*)$`)

// Parse parses text into a read-only block container keyed RootKey.
// No partial tree is returned on error; the error is a *ParseError.
func Parse(text string) (*Container, error) {
	p := &parser{lines: scan(text)}
	root := NewBlock(RootKey)
	if err := p.parseBlock(root, nil); err != nil {
		return nil, err
	}
	if err := interpolateTree(root); err != nil {
		return nil, err
	}
	root.Freeze()
	return root, nil
}

// parser walks the scanned lines with an explicit cursor. Nesting is handled
// by recursion; states mirrors the recursion for error reporting only.
type parser struct {
	lines  []line
	pos    int
	states []State
}

func (p *parser) push(s State) { p.states = append(p.states, s) }
func (p *parser) pop()         { p.states = p.states[:len(p.states)-1] }

func (p *parser) errorf(ln line, format string, args ...any) error {
	states := make([]State, len(p.states))
	copy(states, p.states)
	return &ParseError{
		Line:   ln.num,
		Text:   ln.raw,
		States: states,
		Msg:    fmt.Sprintf(format, args...),
		Err:    ErrSyntax,
	}
}

// parseBlock consumes key lines into c until the closing brace. opener is
// nil for the root, which ends at end of input instead.
func (p *parser) parseBlock(c *Container, opener *line) error {
	p.push(StateBlock)
	defer p.pop()

	for p.pos < len(p.lines) {
		ln := p.lines[p.pos]
		switch ln.kind {
		case lineBlank, lineComment:
			p.pos++
		case lineCloseBlock:
			if opener == nil {
				return p.errorf(ln, "unexpected '}' without an open block")
			}
			p.pos++
			return nil
		case lineCloseList:
			return p.errorf(ln, "unexpected ']' inside a block")
		default:
			if err := p.parseEntry(c, ln); err != nil {
				return err
			}
		}
	}
	if opener != nil {
		return p.errorf(*opener, "block is never closed")
	}
	return nil
}

// parseList consumes unkeyed items into c until the closing bracket.
func (p *parser) parseList(c *Container, opener line) error {
	p.push(StateList)
	defer p.pop()

	for p.pos < len(p.lines) {
		ln := p.lines[p.pos]
		switch ln.kind {
		case lineBlank, lineComment:
			p.pos++
		case lineCloseList:
			p.pos++
			return nil
		case lineCloseBlock:
			return p.errorf(ln, "unexpected '}' inside a list")
		default:
			if err := p.parseItem(c, ln); err != nil {
				return err
			}
		}
	}
	return p.errorf(opener, "list is never closed")
}

func (p *parser) parseEntry(c *Container, ln line) error {
	m := keyLineRe.FindStringSubmatch(ln.text)
	if m == nil {
		return p.errorf(ln, "expected a key")
	}
	key, tildes, colon := m[1], m[2], m[3]
	value := strings.TrimSpace(m[4])

	if colon == "" && value != "" && !strings.ContainsAny(value[:1], "{[") {
		after := ln.text[len(key)+len(tildes):]
		if after[0] != ' ' && after[0] != '\t' {
			return p.errorf(ln, "key %q must be followed by ':' or whitespace", key)
		}
	}

	if tildes != "" {
		return p.parseMultiline(c, key, len(tildes), value, ln)
	}

	if value != "" && (value[0] == '{' || value[0] == '[') {
		child, err := p.openContainer(key, value, ln)
		if err != nil {
			return err
		}
		return c.Add(child)
	}

	p.pos++
	n, err := p.inlineValue(key, value, ln)
	if err != nil {
		return err
	}
	return c.Add(n)
}

func (p *parser) parseItem(c *Container, ln line) error {
	if ln.text[0] == '{' || ln.text[0] == '[' {
		child, err := p.openContainer("", ln.text, ln)
		if err != nil {
			return err
		}
		return c.Add(child)
	}
	p.pos++
	n, err := p.inlineValue("", ln.text, ln)
	if err != nil {
		return err
	}
	return c.Add(n)
}

// openContainer parses a nested block or list whose opening bracket is the
// first character of value. Only a comment may follow the bracket.
func (p *parser) openContainer(key, value string, ln line) (*Container, error) {
	if !blankOrComment(value[1:]) || p.pos+1 >= len(p.lines) {
		return nil, p.errorf(ln, "Something is horribly wrong: %q must end its line and be followed by content", value[:1])
	}
	p.pos++
	if value[0] == '[' {
		child := NewList(key)
		child.line = ln.num
		return child, p.parseList(child, ln)
	}
	child := NewBlock(key)
	child.line = ln.num
	return child, p.parseBlock(child, &ln)
}

// parseMultiline collects raw lines up to a line holding only '}'. One tilde
// removes the common indentation; two or three keep lines verbatim. A line
// holding only \} stands for a literal '}', except with three tildes.
func (p *parser) parseMultiline(c *Container, key string, tildes int, value string, ln line) error {
	p.push(StateBlockString)
	defer p.pop()

	if !strings.HasPrefix(value, "{") {
		return p.errorf(ln, "multiline field %q must open with '{'", key)
	}
	if !blankOrComment(value[1:]) {
		return p.errorf(ln, "multiline field %q: only a comment may follow '{'", key)
	}

	p.pos++
	var body []string
	closed := false
	for p.pos < len(p.lines) {
		l := p.lines[p.pos]
		p.pos++
		if l.kind == lineCloseBlock {
			closed = true
			break
		}
		raw := l.raw
		if tildes < 3 && l.text == `\}` {
			raw = strings.Replace(raw, `\}`, "}", 1)
		}
		body = append(body, raw)
	}
	if !closed {
		return p.errorf(ln, "multiline field %q is never closed", key)
	}

	var s string
	if tildes == 1 {
		s = dedent(body)
	} else {
		s = strings.Join(body, "\n")
	}
	return c.Add(&Scalar{
		key:     key,
		kind:    KindString,
		raw:     s,
		value:   s,
		line:    ln.num,
		pending: hasInterpolation(s),
	})
}

// inlineValue parses the value part of a single line: an inline list in
// parentheses or a scalar.
func (p *parser) inlineValue(key, value string, ln line) (Node, error) {
	p.push(StateInline)
	defer p.pop()

	if len(value) >= 2 && value[0] == '(' && value[len(value)-1] == ')' {
		return p.inlineList(key, value[1:len(value)-1], ln), nil
	}
	if value != "" && (value[0] == '{' || value[0] == '[') {
		return nil, p.errorf(ln, "Something is horribly wrong: unexpected %q", value[:1])
	}
	s := inferScalar(key, value)
	s.line = ln.num
	return s, nil
}

func (p *parser) inlineList(key, inner string, ln line) *Container {
	p.push(StateInlineList)
	defer p.pop()

	list := NewList(key)
	list.line = ln.num
	for _, item := range splitInlineList(inner) {
		s := inferScalar("", item)
		s.line = ln.num
		// A fresh list is never read-only.
		_ = list.Add(s)
	}
	return list
}
