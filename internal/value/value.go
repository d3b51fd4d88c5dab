// Package value implements the dynamic value semantics shared by the
// tree-walking interpreter and the VM: truthiness, stringification,
// item access, iteration and comparison.
package value

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ErrTypeMismatch is returned when an operand has the wrong dynamic type.
var ErrTypeMismatch = errors.New("type mismatch")

// EmptyValue is the type of the `empty` literal.
type EmptyValue struct{}

// Empty compares equal to empty strings, lists and maps.
var Empty = EmptyValue{}

func (EmptyValue) String() string { return "" }

// Getter is implemented by namespaces and drops.
type Getter interface {
	Get(name string) (any, bool)
}

// Range is an inclusive integer range produced by `(a..b)`.
type Range struct {
	Start, Stop int
}

func (r Range) Len() int {
	if r.Stop < r.Start {
		return 0
	}
	return r.Stop - r.Start + 1
}

func (r Range) String() string {
	return fmt.Sprintf("%d..%d", r.Start, r.Stop)
}

// ToString renders v the way output statements print it.
func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return formatFloat(x)
	case json.Number:
		return x.String()
	case []any:
		var sb strings.Builder
		for _, item := range x {
			sb.WriteString(ToString(item))
		}
		return sb.String()
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Truthy reports whether v counts as true in a condition. Only nil and
// false are falsy.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	}
	return true
}

// ToInt converts integral values. Non-integral floats and other types
// fail with ErrTypeMismatch.
func ToInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case int32:
		return int(x), nil
	case uint64:
		return int(x), nil
	case float64:
		if x == math.Trunc(x) {
			return int(x), nil
		}
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n), nil
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: expected an integer, found %T(%v)", ErrTypeMismatch, v, v)
}

// ToNumber converts v to an int or a float64.
func ToNumber(v any) (any, error) {
	switch x := v.(type) {
	case int, float64:
		return x, nil
	case int64:
		return int(x), nil
	case int32:
		return int(x), nil
	case uint64:
		return int(x), nil
	case float32:
		return float64(x), nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n), nil
		}
		if f, err := x.Float64(); err == nil {
			return f, nil
		}
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.Atoi(s); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, nil
		}
	case nil:
		return 0, nil
	}
	return nil, fmt.Errorf("%w: expected a number, found %T", ErrTypeMismatch, v)
}

// Len returns the size of a string, sequence, map or range.
func Len(v any) (int, bool) {
	switch x := v.(type) {
	case string:
		return len([]rune(x)), true
	case []any:
		return len(x), true
	case map[string]any:
		return len(x), true
	case Range:
		return x.Len(), true
	case nil:
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	}
	return 0, false
}

// Iterate returns the items a loop visits. Maps yield [key, value] pairs in
// key order; nil yields nothing; a scalar yields itself.
func Iterate(v any) ([]any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return x, nil
	case Range:
		items := make([]any, 0, x.Len())
		for i := x.Start; i <= x.Stop; i++ {
			items = append(items, i)
		}
		return items, nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items := make([]any, len(keys))
		for i, k := range keys {
			items[i] = []any{k, x[k]}
		}
		return items, nil
	case string:
		return []any{x}, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return items, nil
	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		items := make([]any, len(keys))
		for i, k := range keys {
			items[i] = []any{k.Interface(), rv.MapIndex(k).Interface()}
		}
		return items, nil
	}
	return nil, fmt.Errorf("%w: %T is not iterable", ErrTypeMismatch, v)
}

// GetItem looks up key on obj. The special keys size, first and last work
// on sequences and maps. Missing items yield (nil, false).
func GetItem(obj any, key any) (any, bool) {
	name, isName := key.(string)

	if g, ok := obj.(Getter); ok {
		if isName {
			return g.Get(name)
		}
		return g.Get(ToString(key))
	}

	if isName {
		switch name {
		case "size":
			if n, ok := Len(obj); ok {
				if m, isMap := obj.(map[string]any); isMap {
					if v, has := m["size"]; has {
						return v, true
					}
				}
				return n, true
			}
		case "first", "last":
			if _, isMap := obj.(map[string]any); !isMap {
				if items, ok := sequence(obj); ok {
					if len(items) == 0 {
						return nil, false
					}
					if name == "first" {
						return items[0], true
					}
					return items[len(items)-1], true
				}
			}
		}
	}

	switch x := obj.(type) {
	case map[string]any:
		v, ok := x[ToString(key)]
		return v, ok
	case []any:
		return index(x, key)
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(obj)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		mv := rv.MapIndex(reflect.ValueOf(ToString(key)).Convert(rv.Type().Key()))
		if !mv.IsValid() {
			return nil, false
		}
		return mv.Interface(), true
	case reflect.Slice, reflect.Array:
		items, _ := sequence(obj)
		return index(items, key)
	}
	return nil, false
}

func sequence(obj any) ([]any, bool) {
	switch x := obj.(type) {
	case []any:
		return x, true
	case Range:
		items, _ := Iterate(x)
		return items, true
	case string:
		return nil, false
	}
	rv := reflect.ValueOf(obj)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		items, _ := Iterate(obj)
		return items, true
	}
	return nil, false
}

func index(items []any, key any) (any, bool) {
	i, err := ToInt(key)
	if err != nil {
		return nil, false
	}
	if i < 0 {
		i += len(items)
	}
	if i < 0 || i >= len(items) {
		return nil, false
	}
	return items[i], true
}

// Equal implements `==`.
func Equal(a, b any) bool {
	if _, ok := a.(EmptyValue); ok {
		return isEmpty(b)
	}
	if _, ok := b.(EmptyValue); ok {
		return isEmpty(a)
	}
	if isNumber(a) && isNumber(b) {
		x, _ := toFloat(a)
		y, _ := toFloat(b)
		return x == y
	}
	return reflect.DeepEqual(a, b)
}

func isEmpty(v any) bool {
	switch v.(type) {
	case EmptyValue:
		return true
	case string, []any, map[string]any:
		n, _ := Len(v)
		return n == 0
	}
	return false
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int64, int32, uint64, float64, float32, json.Number:
		return true
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

// Compare orders two numbers or two strings. It returns -1, 0 or 1.
func Compare(a, b any) (int, error) {
	if isNumber(a) && isNumber(b) {
		x, _ := toFloat(a)
		y, _ := toFloat(b)
		switch {
		case x < y:
			return -1, nil
		case x > y:
			return 1, nil
		}
		return 0, nil
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if okA && okB {
		return strings.Compare(sa, sb), nil
	}
	return 0, fmt.Errorf("%w: cannot compare %T and %T", ErrTypeMismatch, a, b)
}

// Contains implements the `contains` operator.
func Contains(container, item any) bool {
	switch x := container.(type) {
	case string:
		return strings.Contains(x, ToString(item))
	case map[string]any:
		_, ok := x[ToString(item)]
		return ok
	case nil:
		return false
	}
	items, ok := sequence(container)
	if !ok {
		return false
	}
	for _, candidate := range items {
		if Equal(candidate, item) {
			return true
		}
	}
	return false
}
