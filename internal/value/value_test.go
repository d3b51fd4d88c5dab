package value

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestToString(t *testing.T) {
	tests := []struct {
		input    any
		expected string
	}{
		{nil, ""},
		{"abc", "abc"},
		{true, "true"},
		{42, "42"},
		{2.0, "2.0"},
		{2.5, "2.5"},
		{[]any{"a", 1, nil}, "a1"},
		{Range{Start: 1, Stop: 3}, "1..3"},
		{Empty, ""},
	}
	for _, tt := range tests {
		if got := ToString(tt.input); got != tt.expected {
			t.Errorf("ToString(%#v): got=%q, want=%q", tt.input, got, tt.expected)
		}
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		input    any
		expected bool
	}{
		{nil, false},
		{false, false},
		{true, true},
		{0, true},
		{"", true},
		{[]any{}, true},
	}
	for _, tt := range tests {
		if got := Truthy(tt.input); got != tt.expected {
			t.Errorf("Truthy(%#v): got=%v, want=%v", tt.input, got, tt.expected)
		}
	}
}

func TestToInt(t *testing.T) {
	good := []struct {
		input    any
		expected int
	}{
		{3, 3},
		{int64(4), 4},
		{5.0, 5},
		{"6", 6},
	}
	for _, tt := range good {
		got, err := ToInt(tt.input)
		if err != nil || got != tt.expected {
			t.Errorf("ToInt(%#v): got=%d err=%v, want=%d", tt.input, got, err, tt.expected)
		}
	}

	for _, bad := range []any{2.5, "x", nil, []any{1}} {
		if _, err := ToInt(bad); !errors.Is(err, ErrTypeMismatch) {
			t.Errorf("ToInt(%#v): got err=%v, want ErrTypeMismatch", bad, err)
		}
	}
}

func TestIterate(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected []any
	}{
		{"nil", nil, nil},
		{"list", []any{1, 2}, []any{1, 2}},
		{"typed slice", []string{"a", "b"}, []any{"a", "b"}},
		{"range", Range{Start: 2, Stop: 4}, []any{2, 3, 4}},
		{"empty range", Range{Start: 4, Stop: 2}, []any{}},
		{"map", map[string]any{"b": 2, "a": 1}, []any{[]any{"a", 1}, []any{"b", 2}}},
		{"string", "abc", []any{"abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Iterate(tt.input)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := Iterate(12); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Iterate(12): got err=%v, want ErrTypeMismatch", err)
	}
}

type getter map[string]any

func (g getter) Get(name string) (any, bool) {
	v, ok := g[name]
	return v, ok
}

func TestGetItem(t *testing.T) {
	list := []any{"a", "b", "c"}
	hash := map[string]any{"name": "x", "tags": []any{"t"}}

	tests := []struct {
		name     string
		obj      any
		key      any
		expected any
		found    bool
	}{
		{"map key", hash, "name", "x", true},
		{"map missing", hash, "nope", nil, false},
		{"map size", hash, "size", 2, true},
		{"list index", list, 1, "b", true},
		{"list negative", list, -1, "c", true},
		{"list out of range", list, 3, nil, false},
		{"list size", list, "size", 3, true},
		{"list first", list, "first", "a", true},
		{"list last", list, "last", "c", true},
		{"string size", "héllo", "size", 5, true},
		{"typed slice", []int{4, 5}, 0, 4, true},
		{"typed map", map[string]int{"k": 1}, "k", 1, true},
		{"getter", getter{"k": "v"}, "k", "v", true},
		{"nil", nil, "k", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := GetItem(tt.obj, tt.key)
			if ok != tt.found || !cmp.Equal(got, tt.expected) {
				t.Errorf("got=(%#v, %v), want=(%#v, %v)", got, ok, tt.expected, tt.found)
			}
		})
	}
}

func TestEqualAndCompare(t *testing.T) {
	if !Equal(1, 1.0) {
		t.Errorf("1 == 1.0 should hold")
	}
	if Equal("1", 1) {
		t.Errorf(`"1" == 1 should not hold`)
	}
	if !Equal(Empty, "") || !Equal([]any{}, Empty) || Equal(Empty, "x") {
		t.Errorf("empty comparisons are wrong")
	}
	if !Equal([]any{1, "a"}, []any{1, "a"}) {
		t.Errorf("equal lists should compare equal")
	}

	if c, err := Compare(1, 2.5); err != nil || c != -1 {
		t.Errorf("Compare(1, 2.5): got=%d err=%v", c, err)
	}
	if c, err := Compare("b", "a"); err != nil || c != 1 {
		t.Errorf(`Compare("b", "a"): got=%d err=%v`, c, err)
	}
	if _, err := Compare("a", 1); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Compare mixed types: got err=%v", err)
	}
}

func TestContains(t *testing.T) {
	tests := []struct {
		container any
		item      any
		expected  bool
	}{
		{"hello", "ell", true},
		{"hello", "z", false},
		{[]any{1, 2}, 2.0, true},
		{[]any{"a"}, "b", false},
		{map[string]any{"k": 1}, "k", true},
		{nil, "k", false},
		{5, 5, false},
	}
	for _, tt := range tests {
		if got := Contains(tt.container, tt.item); got != tt.expected {
			t.Errorf("Contains(%#v, %#v): got=%v, want=%v", tt.container, tt.item, got, tt.expected)
		}
	}
}
