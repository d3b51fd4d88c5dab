package drop

import (
	"fmt"

	"github.com/funvibe/liquid/internal/value"
)

// Items evaluates a loop expression's iterable with its modifiers. Offset
// is applied before limit and reversal comes last. Nil modifiers are
// ignored.
func Items(iterable, limit, offset any, reversed bool) ([]any, error) {
	items, err := value.Iterate(iterable)
	if err != nil {
		return nil, err
	}

	if offset != nil {
		n, err := value.ToInt(offset)
		if err != nil {
			return nil, fmt.Errorf("offset: %w", err)
		}
		switch {
		case n >= len(items):
			items = nil
		case n > 0:
			items = items[n:]
		}
	}

	if limit != nil {
		n, err := value.ToInt(limit)
		if err != nil {
			return nil, fmt.Errorf("limit: %w", err)
		}
		if n < 0 {
			n = 0
		}
		if n < len(items) {
			items = items[:n]
		}
	}

	if reversed {
		out := make([]any, len(items))
		for i, item := range items {
			out[len(items)-1-i] = item
		}
		return out, nil
	}
	return items, nil
}

// Columns resolves a tablerow cols argument. Nil means one column.
func Columns(cols any) (int, error) {
	if cols == nil {
		return 1, nil
	}
	n, err := value.ToInt(cols)
	if err != nil {
		return 0, fmt.Errorf("cols: %w", err)
	}
	if n < 1 {
		return 0, fmt.Errorf("cols: %w: expected a positive integer, found %d", value.ErrTypeMismatch, n)
	}
	return n, nil
}
