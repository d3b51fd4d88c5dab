// Package symbol implements the compile-time symbol tables used to assign
// slots to loop variables, counters and cycle groups.
package symbol

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNameNotFound is returned by Resolve when no enclosing scope defines a name.
var ErrNameNotFound = errors.New("name not found")

// Kind classifies where a symbol lives.
type Kind string

const (
	Local   Kind = "LOCAL"
	Block   Kind = "BLOCK"
	Cycle   Kind = "CYCLE"
	Counter Kind = "COUNTER"
)

// Symbol is an immutable slot assignment.
type Symbol struct {
	Name  string
	Scope Kind
	Index int
}

func (s Symbol) String() string {
	return fmt.Sprintf("%s(%s#%d)", s.Name, s.Scope, s.Index)
}

// scope is a name -> symbol store with a dense slot counter.
type scope struct {
	store          map[string]Symbol
	numDefinitions int
	// order keeps every symbol ever defined, shadowed ones included.
	order []Symbol
}

func newScope() scope {
	return scope{store: map[string]Symbol{}}
}

func (s *scope) add(name string, kind Kind) Symbol {
	sym := Symbol{Name: name, Scope: kind, Index: s.numDefinitions}
	s.store[name] = sym
	s.order = append(s.order, sym)
	s.numDefinitions++
	return sym
}

// Table is one node in a tree of lexical scopes. Only the root table owns
// the counter and cycle namespaces.
type Table struct {
	Outer *Table

	locals   scope
	counters scope
	cycles   scope
}

func NewTable() *Table {
	return &Table{
		locals:   newScope(),
		counters: newScope(),
		cycles:   newScope(),
	}
}

// NewEnclosed returns a child scope of outer.
func NewEnclosed(outer *Table) *Table {
	t := NewTable()
	t.Outer = outer
	return t
}

// Define allocates the next slot in this scope. Defining a name twice
// shadows the earlier binding; the earlier slot is never reused.
func (t *Table) Define(name string) Symbol {
	kind := Local
	if t.Outer != nil {
		kind = Block
	}
	return t.locals.add(name, kind)
}

// Resolve finds name in this scope or the nearest enclosing one.
func (t *Table) Resolve(name string) (Symbol, error) {
	for cur := t; cur != nil; cur = cur.Outer {
		if sym, ok := cur.locals.store[name]; ok {
			return sym, nil
		}
	}
	return Symbol{}, fmt.Errorf("%w: %s", ErrNameNotFound, name)
}

// Root returns the outermost table.
func (t *Table) Root() *Table {
	cur := t
	for cur.Outer != nil {
		cur = cur.Outer
	}
	return cur
}

// DefineCounter returns the root-level counter symbol for name, creating it
// on first use.
func (t *Table) DefineCounter(name string) Symbol {
	root := t.Root()
	if sym, ok := root.counters.store[name]; ok {
		return sym
	}
	return root.counters.add(name, Counter)
}

// DefineCycle returns the root-level cycle symbol for a group and its
// arguments, creating it on first use.
func (t *Table) DefineCycle(group string, args []string) Symbol {
	key := CycleKey(group, args)
	root := t.Root()
	if sym, ok := root.cycles.store[key]; ok {
		return sym
	}
	return root.cycles.add(key, Cycle)
}

// CycleKey is the group name, a colon, then the argument strings joined by
// commas. Arguments are single primaries, so a comma outside quotes always
// separates two of them.
func CycleKey(group string, args []string) string {
	return group + ":" + strings.Join(args, ",")
}

// NumDefinitions is the number of slots allocated in this scope.
func (t *Table) NumDefinitions() int { return t.locals.numDefinitions }

func (t *Table) NumCounters() int { return t.Root().counters.numDefinitions }

func (t *Table) NumCycles() int { return t.Root().cycles.numDefinitions }

// Metadata is the part of a root table that outlives compilation.
type Metadata struct {
	Locals   []string
	Counters []string
	Cycles   []string
}

// Metadata copies the root-level names in slot order.
func (t *Table) Metadata() Metadata {
	root := t.Root()
	return Metadata{
		Locals:   names(root.locals.order),
		Counters: names(root.counters.order),
		Cycles:   names(root.cycles.order),
	}
}

func names(syms []Symbol) []string {
	out := make([]string, len(syms))
	for i, s := range syms {
		out[i] = s.Name
	}
	return out
}
