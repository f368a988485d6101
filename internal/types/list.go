package types

import (
	"fmt"
	"strings"
)

// ListOf returns a converter that splits its input into elements and
// converts each with the element type looked up in ctx.Registry. Text input
// is split on single commas; two consecutive commas stand for a literal one.
// A []any input is used element by element.
func ListOf(elem string) Converter {
	return func(raw any, ctx *Context) (any, error) {
		if ctx == nil || ctx.Registry == nil {
			return nil, fmt.Errorf("types: list of %q needs a registry in the context", elem)
		}
		conv, err := ctx.Registry.Get(elem)
		if err != nil {
			return nil, err
		}

		var items []any
		switch v := raw.(type) {
		case []any:
			items = v
		case nil:
		default:
			for _, s := range SplitList(asText(v)) {
				items = append(items, s)
			}
		}

		out := make([]any, 0, len(items))
		for i, item := range items {
			ectx := &Context{Field: fmt.Sprintf("%s[%d]", ctx.Field, i), Type: elem, Registry: ctx.Registry}
			cv, err := conv(item, ectx)
			if err != nil {
				return nil, err
			}
			out = append(out, cv)
		}
		return out, nil
	}
}

// SplitList splits s on commas. ",," is a literal comma. Items are trimmed
// and empty items dropped.
func SplitList(s string) []string {
	var (
		items []string
		cur   strings.Builder
	)
	flush := func() {
		if item := strings.TrimSpace(cur.String()); item != "" {
			items = append(items, item)
		}
		cur.Reset()
	}
	for i := 0; i < len(s); i++ {
		if s[i] != ',' {
			cur.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == ',' {
			cur.WriteByte(',')
			i++
			continue
		}
		flush()
	}
	flush()
	return items
}
