package drop

import (
	"fmt"

	"github.com/funvibe/liquid/internal/config"
)

// ForLoop tracks the position of a for loop. Like TableRow it changes only
// in Step.
type ForLoop struct {
	name   string
	length int

	item    any
	index   int
	index0  int
	rindex  int
	rindex0 int
	first   bool
	last    bool
}

func NewForLoop(name string, length int) *ForLoop {
	return &ForLoop{
		name:    name,
		length:  length,
		index0:  -1,
		rindex:  length + 1,
		rindex0: length,
	}
}

func (f *ForLoop) Step(item any) {
	f.item = item
	f.index++
	f.index0++
	f.rindex--
	f.rindex0--
	f.first = f.index0 == 0
	f.last = f.rindex0 == 0
}

func (f *ForLoop) Get(name string) (any, bool) {
	switch name {
	case "name":
		return f.name, true
	case "length":
		return f.length, true
	case "index":
		return f.index, true
	case "index0":
		return f.index0, true
	case "rindex":
		return f.rindex, true
	case "rindex0":
		return f.rindex0, true
	case "first":
		return f.first, true
	case "last":
		return f.last, true
	}
	return nil, false
}

func (f *ForLoop) String() string {
	return fmt.Sprintf("ForLoop(name='%s', length=%d)", f.name, f.length)
}

// ForLoopDrop binds forloop and the loop variable.
type ForLoopDrop struct {
	forloop *ForLoop
}

func NewForLoopDrop(f *ForLoop) *ForLoopDrop {
	return &ForLoopDrop{forloop: f}
}

func (d *ForLoopDrop) Get(name string) (any, bool) {
	switch name {
	case config.ForLoopName:
		return d.forloop, true
	case d.forloop.name:
		return d.forloop.item, true
	}
	return nil, false
}
