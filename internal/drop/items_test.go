package drop

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/funvibe/liquid/internal/value"
)

func TestItems(t *testing.T) {
	list := []any{1, 2, 3, 4, 5}
	tests := []struct {
		name     string
		limit    any
		offset   any
		reversed bool
		expected []any
	}{
		{"plain", nil, nil, false, []any{1, 2, 3, 4, 5}},
		{"limit", 2, nil, false, []any{1, 2}},
		{"offset", nil, 3, false, []any{4, 5}},
		{"both", 2, 1, false, []any{2, 3}},
		{"reversed after slicing", 2, 1, true, []any{3, 2}},
		{"offset past end", nil, 9, false, nil},
		{"negative limit", -1, nil, false, []any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Items(list, tt.limit, tt.offset, tt.reversed)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := Items(list, "x", nil, false); !errors.Is(err, value.ErrTypeMismatch) {
		t.Errorf("bad limit: got err=%v", err)
	}
	if _, err := Items(7, nil, nil, false); !errors.Is(err, value.ErrTypeMismatch) {
		t.Errorf("non-iterable: got err=%v", err)
	}
}

func TestColumns(t *testing.T) {
	if n, err := Columns(nil); err != nil || n != 1 {
		t.Errorf("Columns(nil): got=%d err=%v", n, err)
	}
	if n, err := Columns(3); err != nil || n != 3 {
		t.Errorf("Columns(3): got=%d err=%v", n, err)
	}
	for _, bad := range []any{0, -2, 1.5, "x"} {
		if _, err := Columns(bad); !errors.Is(err, value.ErrTypeMismatch) {
			t.Errorf("Columns(%#v): got err=%v, want ErrTypeMismatch", bad, err)
		}
	}
}
