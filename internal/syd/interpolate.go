package syd

import (
	"fmt"
	"regexp"
	"strings"
)

// interpRe also matches the escaped form $${name} so it can be unescaped in
// the same pass.
var interpRe = regexp.MustCompile(`\$?\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func hasInterpolation(s string) bool {
	return strings.Contains(s, "${")
}

// interpolateTree resolves every pending string once the whole tree is
// built, so a reference may point at a sibling defined further down.
func interpolateTree(c *Container) error {
	for _, ch := range c.children {
		switch n := ch.(type) {
		case *Scalar:
			if err := n.interpolate(make(map[*Scalar]bool)); err != nil {
				return err
			}
		case *Container:
			if err := interpolateTree(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// interpolate replaces ${name} with the string form of the sibling scalar
// name in the immediate parent. The result replaces the value, so each
// scalar is resolved at most once.
func (s *Scalar) interpolate(visiting map[*Scalar]bool) error {
	if !s.pending {
		return nil
	}
	if visiting[s] {
		return s.interpError("reference cycle through %q", s.key)
	}
	visiting[s] = true
	defer delete(visiting, s)

	var firstErr error
	out := interpRe.ReplaceAllStringFunc(s.value.(string), func(m string) string {
		if firstErr != nil {
			return m
		}
		if strings.HasPrefix(m, "$$") {
			return m[1:]
		}
		name := m[2 : len(m)-1]
		v, err := s.lookupSibling(name, visiting)
		if err != nil {
			firstErr = err
			return m
		}
		return v
	})
	if firstErr != nil {
		return firstErr
	}
	s.value = out
	s.pending = false
	return nil
}

func (s *Scalar) lookupSibling(name string, visiting map[*Scalar]bool) (string, error) {
	if name == s.key {
		return "", s.interpError("%q refers to itself", name)
	}
	if s.parent == nil {
		return "", s.interpError("no parent to resolve ${%s}", name)
	}
	n, ok := s.parent.Get(name)
	if !ok {
		return "", s.interpError("unknown key ${%s}", name)
	}
	sib, ok := n.(*Scalar)
	if !ok {
		return "", s.interpError("${%s} is not a scalar", name)
	}
	switch sib.kind {
	case KindString, KindInt, KindFloat:
	default:
		return "", s.interpError("${%s} has type %s; only strings and numbers can be interpolated", name, sib.kind)
	}
	if err := sib.interpolate(visiting); err != nil {
		return "", err
	}
	return sib.String(), nil
}

func (s *Scalar) interpError(format string, args ...any) error {
	return &ParseError{
		Line: s.line,
		Text: s.raw,
		Msg:  fmt.Sprintf(format, args...),
		Err:  ErrInterpolation,
	}
}
