// Package drop implements the loop-state objects exposed to templates as
// `forloop` and `tablerowloop`, and the namespaces that bind them.
package drop

import (
	"fmt"

	"github.com/funvibe/liquid/internal/config"
)

// tableRowKeys are the attributes visible through tablerowloop.
var tableRowKeys = []string{
	"length", "index", "index0", "rindex", "rindex0",
	"first", "last", "col", "col0", "col_first", "col_last",
}

// TableRow tracks the position of a tablerow loop. Fields are read through
// Get and the accessors below; Step is the only mutation point and every
// derived field is recomputed there.
type TableRow struct {
	name   string
	length int
	ncols  int

	item     any
	index    int
	index0   int
	rindex   int
	rindex0  int
	first    bool
	last     bool
	col      int
	col0     int
	colFirst bool
	colLast  bool
}

// NewTableRow returns loop state positioned before the first item.
func NewTableRow(name string, length, ncols int) *TableRow {
	return &TableRow{
		name:     name,
		length:   length,
		ncols:    ncols,
		index0:   -1,
		rindex:   length + 1,
		rindex0:  length,
		col0:     -1,
		colFirst: true,
	}
}

// Step moves to item and updates every helper field.
func (t *TableRow) Step(item any) {
	t.item = item
	t.index++
	t.index0++
	t.rindex--
	t.rindex0--

	t.first = t.index0 == 0
	t.last = t.rindex0 == 0

	t.col0 = t.index0 % t.ncols
	t.col = t.col0 + 1
	t.colFirst = t.col == 1
	t.colLast = t.col == t.ncols
}

// Name is the loop variable.
func (t *TableRow) Name() string { return t.name }

// Item is the current item.
func (t *TableRow) Item() any { return t.item }

// Col is the 1-based column of the current item.
func (t *TableRow) Col() int { return t.col }

// ColFirst reports whether the current item opens a row.
func (t *TableRow) ColFirst() bool { return t.colFirst }

// Row is the 1-based row number of the current item.
func (t *TableRow) Row() int {
	return t.index0/t.ncols + 1
}

func (t *TableRow) Get(name string) (any, bool) {
	switch name {
	case "length":
		return t.length, true
	case "index":
		return t.index, true
	case "index0":
		return t.index0, true
	case "rindex":
		return t.rindex, true
	case "rindex0":
		return t.rindex0, true
	case "first":
		return t.first, true
	case "last":
		return t.last, true
	case "col":
		return t.col, true
	case "col0":
		return t.col0, true
	case "col_first":
		return t.colFirst, true
	case "col_last":
		return t.colLast, true
	case "size":
		return len(tableRowKeys), true
	}
	return nil, false
}

func (t *TableRow) String() string {
	return fmt.Sprintf("TableRow(name='%s', length=%d)", t.name, t.length)
}

// TableRowDrop exposes exactly two names: tablerowloop and the loop
// variable.
type TableRowDrop struct {
	tablerow *TableRow
}

func NewTableRowDrop(t *TableRow) *TableRowDrop {
	return &TableRowDrop{tablerow: t}
}

func (d *TableRowDrop) Get(name string) (any, bool) {
	switch name {
	case config.TableRowLoopName:
		return d.tablerow, true
	case d.tablerow.name:
		return d.tablerow.item, true
	}
	return nil, false
}

// Group splits items into consecutive chunks of n. The last chunk holds
// the remainder. n must be positive.
func Group(items []any, n int) [][]any {
	if n < 1 {
		panic(fmt.Sprintf("drop: group size %d", n))
	}
	rows := make([][]any, 0, (len(items)+n-1)/n)
	for start := 0; start < len(items); start += n {
		end := start + n
		if end > len(items) {
			end = len(items)
		}
		rows = append(rows, items[start:end])
	}
	return rows
}
