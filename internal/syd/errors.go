package syd

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSyntax is wrapped by every grammar violation.
	ErrSyntax = errors.New("syd: syntax error")
	// ErrInterpolation is wrapped when a ${name} reference cannot be resolved.
	ErrInterpolation = errors.New("syd: interpolation error")
	// ErrReadOnly is returned when adding to a frozen container.
	ErrReadOnly = errors.New("syd: container is read-only")
)

// State names a parser context. A ParseError carries the stack of states
// that were active when the error was raised.
type State uint8

const (
	StateBlock State = iota
	StateList
	StateBlockString
	StateInline
	StateInlineList
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateBlock:
		return "processing_block"
	case StateList:
		return "processing_list"
	case StateBlockString:
		return "processing_block_string"
	case StateInline:
		return "processing_inline"
	case StateInlineList:
		return "processing_inline_list"
	default:
		return "unknown"
	}
}

// ParseError reports malformed Syd input.
type ParseError struct {
	Line   int
	Text   string
	States []State
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "syd: line %d: %s", e.Line, e.Msg)
	if e.Text != "" {
		fmt.Fprintf(&b, ": %q", e.Text)
	}
	if len(e.States) > 0 {
		names := make([]string, len(e.States))
		for i, s := range e.States {
			names[i] = s.String()
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(names, " > "))
	}
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
