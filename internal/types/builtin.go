package types

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/starford/synamic/internal/datetime"
	"github.com/starford/synamic/internal/markup"
)

// Built-in type names.
const (
	Number   = "number"
	String   = "string"
	Text     = "text"
	Date     = "date"
	Time     = "time"
	DateTime = "datetime"
	Markdown = "markdown"
	HTML     = "html"
	MarkType = "mark"
)

// ListSuffix marks a list variant of a scalar type, as in "string[]".
const ListSuffix = "[]"

var numberRe = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// RegisterBuiltins registers the scalar types and a list variant of every
// scalar type except markdown and html.
func RegisterBuiltins(r *Registry) error {
	scalars := []struct {
		name string
		conv Converter
		list bool
	}{
		{Number, convertNumber, true},
		{String, convertString, true},
		{Text, convertText, true},
		{Date, convertDate, true},
		{Time, convertTime, true},
		{DateTime, convertDateTime, true},
		{Markdown, convertMarkdown, false},
		{HTML, convertHTML, false},
		{MarkType, convertMark, true},
	}
	for _, s := range scalars {
		if err := r.Register(s.name, s.conv); err != nil {
			return err
		}
		if s.list {
			if err := r.Register(s.name+ListSuffix, ListOf(s.name)); err != nil {
				return err
			}
		}
	}
	return nil
}

// asText renders a raw scalar as text. Lists are joined with ", ".
func asText(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = asText(e)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}

func convertNumber(raw any, ctx *Context) (any, error) {
	switch v := raw.(type) {
	case int64, float64:
		return v, nil
	case int:
		return int64(v), nil
	case string:
		s := strings.TrimSpace(v)
		if !numberRe.MatchString(s) {
			return nil, convErr(ctx, raw, "not a number")
		}
		if strings.Contains(s, ".") {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, convErr(ctx, raw, "%v", err)
			}
			return f, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, convErr(ctx, raw, "%v", err)
		}
		return n, nil
	}
	return nil, convErr(ctx, raw, "not a number")
}

// convertString keeps the first line only.
func convertString(raw any, _ *Context) (any, error) {
	s := asText(raw)
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	return s, nil
}

// convertText is the identity for strings and lists.
func convertText(raw any, _ *Context) (any, error) {
	switch raw.(type) {
	case string, []any:
		return raw, nil
	}
	return asText(raw), nil
}

func convertDate(raw any, ctx *Context) (any, error) {
	t, err := datetime.ParseDate(asText(raw))
	if err != nil {
		return nil, convErr(ctx, raw, "%v", err)
	}
	return t, nil
}

func convertTime(raw any, ctx *Context) (any, error) {
	c, err := datetime.ParseTime(asText(raw))
	if err != nil {
		return nil, convErr(ctx, raw, "%v", err)
	}
	return c, nil
}

func convertDateTime(raw any, ctx *Context) (any, error) {
	t, err := datetime.ParseDateTime(asText(raw))
	if err != nil {
		return nil, convErr(ctx, raw, "%v", err)
	}
	return t, nil
}

func convertMarkdown(raw any, _ *Context) (any, error) {
	return markup.NewMarkdown(asText(raw)), nil
}

func convertHTML(raw any, _ *Context) (any, error) {
	return markup.NewHTML(asText(raw)), nil
}
