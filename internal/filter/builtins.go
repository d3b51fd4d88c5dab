package filter

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/funvibe/liquid/internal/value"
)

var (
	stripPolicyOnce sync.Once
	stripPolicy     *bluemonday.Policy
)

func htmlStripper() *bluemonday.Policy {
	stripPolicyOnce.Do(func() {
		stripPolicy = bluemonday.StrictPolicy()
	})
	return stripPolicy
}

func registerBuiltins(r *Registry) {
	r.Register("upcase", stringFilter("upcase", strings.ToUpper))
	r.Register("downcase", stringFilter("downcase", strings.ToLower))
	r.Register("capitalize", stringFilter("capitalize", capitalize))
	r.Register("strip", stringFilter("strip", strings.TrimSpace))
	r.Register("lstrip", stringFilter("lstrip", func(s string) string { return strings.TrimLeft(s, " \t\r\n") }))
	r.Register("rstrip", stringFilter("rstrip", func(s string) string { return strings.TrimRight(s, " \t\r\n") }))
	r.Register("escape", stringFilter("escape", html.EscapeString))
	r.Register("strip_html", stringFilter("strip_html", stripHTML))
	r.Register("append", func(in any, args ...any) (any, error) {
		if err := checkArgs("append", args, 1, 1); err != nil {
			return nil, err
		}
		return value.ToString(in) + value.ToString(args[0]), nil
	})
	r.Register("prepend", func(in any, args ...any) (any, error) {
		if err := checkArgs("prepend", args, 1, 1); err != nil {
			return nil, err
		}
		return value.ToString(args[0]) + value.ToString(in), nil
	})
	r.Register("replace", func(in any, args ...any) (any, error) {
		if err := checkArgs("replace", args, 2, 2); err != nil {
			return nil, err
		}
		return strings.ReplaceAll(value.ToString(in), value.ToString(args[0]), value.ToString(args[1])), nil
	})
	r.Register("split", func(in any, args ...any) (any, error) {
		if err := checkArgs("split", args, 1, 1); err != nil {
			return nil, err
		}
		parts := strings.Split(value.ToString(in), value.ToString(args[0]))
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out, nil
	})
	r.Register("join", join)
	r.Register("size", func(in any, args ...any) (any, error) {
		n, _ := value.Len(in)
		return n, nil
	})
	r.Register("first", func(in any, args ...any) (any, error) {
		v, _ := value.GetItem(in, "first")
		return v, nil
	})
	r.Register("last", func(in any, args ...any) (any, error) {
		v, _ := value.GetItem(in, "last")
		return v, nil
	})
	r.Register("reverse", func(in any, args ...any) (any, error) {
		items, err := value.Iterate(in)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, item := range items {
			out[len(items)-1-i] = item
		}
		return out, nil
	})
	r.Register("default", func(in any, args ...any) (any, error) {
		if err := checkArgs("default", args, 1, 1); err != nil {
			return nil, err
		}
		if in == nil || in == false || value.Equal(in, value.Empty) {
			return args[0], nil
		}
		return in, nil
	})
	r.Register("plus", arithmetic("plus", func(a, b int) int { return a + b }, func(a, b float64) float64 { return a + b }))
	r.Register("minus", arithmetic("minus", func(a, b int) int { return a - b }, func(a, b float64) float64 { return a - b }))
	r.Register("times", arithmetic("times", func(a, b int) int { return a * b }, func(a, b float64) float64 { return a * b }))
}

func stringFilter(name string, fn func(string) string) Func {
	return func(in any, args ...any) (any, error) {
		if err := checkArgs(name, args, 0, 0); err != nil {
			return nil, err
		}
		return fn(value.ToString(in)), nil
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
	return string(runes)
}

func stripHTML(s string) string {
	return html.UnescapeString(htmlStripper().Sanitize(s))
}

func join(in any, args ...any) (any, error) {
	if err := checkArgs("join", args, 0, 1); err != nil {
		return nil, err
	}
	sep := " "
	if len(args) == 1 {
		sep = value.ToString(args[0])
	}
	items, err := value.Iterate(in)
	if err != nil {
		return nil, err
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = value.ToString(item)
	}
	return strings.Join(parts, sep), nil
}

func arithmetic(name string, ints func(a, b int) int, floats func(a, b float64) float64) Func {
	return func(in any, args ...any) (any, error) {
		if err := checkArgs(name, args, 1, 1); err != nil {
			return nil, err
		}
		a, err := value.ToNumber(in)
		if err != nil {
			return nil, err
		}
		b, err := value.ToNumber(args[0])
		if err != nil {
			return nil, err
		}
		ai, aInt := a.(int)
		bi, bInt := b.(int)
		if aInt && bInt {
			return ints(ai, bi), nil
		}
		return floats(asFloat(a), asFloat(b)), nil
	}
}

func asFloat(n any) float64 {
	if i, ok := n.(int); ok {
		return float64(i)
	}
	return n.(float64)
}
