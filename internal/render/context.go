// Package render holds the per-render state shared by every node: the
// namespace chain used to resolve names, local assignments, counters and
// cycle positions.
package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tliron/commonlog"

	"github.com/funvibe/liquid/internal/config"
	"github.com/funvibe/liquid/internal/filter"
	"github.com/funvibe/liquid/internal/value"
)

// ErrContextDepth is returned when Extend would exceed config.MaxContextDepth.
var ErrContextDepth = errors.New("maximum context depth reached")

// Namespace is a read-only name lookup.
type Namespace = value.Getter

// Map adapts a plain map to Namespace.
type Map map[string]any

func (m Map) Get(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// Chain looks names up in each namespace in order.
type Chain []Namespace

func (c Chain) Get(name string) (any, bool) {
	for _, ns := range c {
		if ns == nil {
			continue
		}
		if v, ok := ns.Get(name); ok {
			return v, true
		}
	}
	return nil, false
}

// Mode decides what happens to render errors.
type Mode int

const (
	Strict Mode = iota // return the error
	Warn               // log it and keep going
	Lax                // ignore it
)

// ParseMode maps a config mode name to a Mode.
func ParseMode(name string) (Mode, error) {
	switch name {
	case config.ModeStrict, "":
		return Strict, nil
	case config.ModeWarn:
		return Warn, nil
	case config.ModeLax:
		return Lax, nil
	}
	return Strict, fmt.Errorf("unknown mode %q", name)
}

func (m Mode) String() string {
	switch m {
	case Warn:
		return config.ModeWarn
	case Lax:
		return config.ModeLax
	}
	return config.ModeStrict
}

// Options configures a new Context.
type Options struct {
	Globals  Namespace
	Filters  *filter.Registry
	Mode     Mode
	Logger   commonlog.Logger
	RenderID string
	// Context is checked for cancellation while loops run.
	Context context.Context
}

// state is shared by a context and every view returned by Extend.
type state struct {
	locals   Map
	counters map[string]int
	cycles   map[string]int
	globals  Namespace
	builtins Namespace

	filters  *filter.Registry
	mode     Mode
	log      commonlog.Logger
	renderID string
	goctx    context.Context
}

// Context resolves names for one render. Views created by Extend share
// locals, counters and cycles with their parent.
type Context struct {
	*state
	// scope holds extended namespaces, innermost last.
	scope []Namespace
}

func New(opts Options) *Context {
	log := opts.Logger
	if log == nil {
		log = commonlog.GetLogger("liquid.render")
	}
	if opts.RenderID != "" {
		log = commonlog.NewKeyValueLogger(log, "render", opts.RenderID)
	}
	filters := opts.Filters
	if filters == nil {
		filters = filter.Default()
	}
	goctx := opts.Context
	if goctx == nil {
		goctx = context.Background()
	}
	return &Context{state: &state{
		locals:   Map{},
		counters: map[string]int{},
		cycles:   map[string]int{},
		globals:  opts.Globals,
		builtins: builtins{},
		filters:  filters,
		mode:     opts.Mode,
		log:      log,
		renderID: opts.RenderID,
		goctx:    goctx,
	}}
}

// Resolve looks name up in the extended namespaces (innermost first), then
// locals, globals and builtins.
func (c *Context) Resolve(name string) (any, bool) {
	for i := len(c.scope) - 1; i >= 0; i-- {
		if v, ok := c.scope[i].Get(name); ok {
			return v, true
		}
	}
	if v, ok := c.locals[name]; ok {
		return v, true
	}
	if c.globals != nil {
		if v, ok := c.globals.Get(name); ok {
			return v, true
		}
	}
	return c.builtins.Get(name)
}

// Get implements Namespace.
func (c *Context) Get(name string) (any, bool) { return c.Resolve(name) }

// Assign binds name in the render's locals.
func (c *Context) Assign(name string, v any) {
	c.locals[name] = v
}

// Increment returns the next value of a counter that starts at 0.
func (c *Context) Increment(name string) int {
	v, ok := c.counters[name]
	if !ok {
		v = -1
	}
	v++
	c.counters[name] = v
	return v
}

// Decrement returns the next value of a counter that starts at -1.
func (c *Context) Decrement(name string) int {
	v := c.counters[name] - 1
	c.counters[name] = v
	return v
}

// Cycle returns the next of args for the cycle identified by key.
func (c *Context) Cycle(key string, args []any) any {
	if len(args) == 0 {
		return nil
	}
	pos := c.cycles[key]
	c.cycles[key] = pos + 1
	return args[pos%len(args)]
}

// Extend returns a view with ns pushed in front of the current scope. The
// receiver is left unchanged.
func (c *Context) Extend(ns Namespace) (*Context, error) {
	if len(c.scope) >= config.MaxContextDepth {
		return nil, fmt.Errorf("%w (%d), possible recursive template", ErrContextDepth, config.MaxContextDepth)
	}
	scope := make([]Namespace, len(c.scope), len(c.scope)+1)
	copy(scope, c.scope)
	return &Context{state: c.state, scope: append(scope, ns)}, nil
}

// Filter returns the filter called name.
func (c *Context) Filter(name string) (filter.Func, error) {
	return c.filters.Lookup(name)
}

// Error applies the render mode to err. It returns err in strict mode and
// nil otherwise, logging a warning in warn mode.
func (c *Context) Error(err error) error {
	switch c.mode {
	case Warn:
		c.log.Warningf("%s", err)
		return nil
	case Lax:
		return nil
	}
	return err
}

// Logger is the render's logger, tagged with its render ID.
func (c *Context) Logger() commonlog.Logger { return c.log }

func (c *Context) RenderID() string { return c.renderID }

// Done reports cancellation of the render.
func (c *Context) Done() error { return c.goctx.Err() }

type builtins struct{}

func (builtins) Get(name string) (any, bool) {
	switch name {
	case "now":
		return time.Now(), true
	case "today":
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), true
	}
	return nil, false
}
