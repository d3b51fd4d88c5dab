// Package filter holds the filter functions applied with `|` in output
// expressions.
package filter

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownFilter is returned when a template names a filter that is not
// registered.
var ErrUnknownFilter = errors.New("unknown filter")

// ErrArguments is returned when a filter gets the wrong number of arguments.
var ErrArguments = errors.New("wrong number of filter arguments")

// Func transforms the left-hand value using optional arguments.
type Func func(input any, args ...any) (any, error)

// Registry maps filter names to functions. It is safe for concurrent reads
// after registration.
type Registry struct {
	mu      sync.RWMutex
	filters map[string]Func
}

func NewRegistry() *Registry {
	return &Registry{filters: map[string]Func{}}
}

func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[name] = fn
}

// Lookup returns the filter called name.
func (r *Registry) Lookup(name string) (Func, error) {
	r.mu.RLock()
	fn, ok := r.filters[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFilter, name)
	}
	return fn, nil
}

// Names lists the registered filters in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.filters))
	for name := range r.filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone copies the registry so callers can add filters without touching
// the shared defaults.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := NewRegistry()
	for name, fn := range r.filters {
		out.filters[name] = fn
	}
	return out
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the shared registry with the built-in filters.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
		registerBuiltins(defaultRegistry)
	})
	return defaultRegistry
}

func checkArgs(name string, args []any, min, max int) error {
	if len(args) < min || len(args) > max {
		if min == max {
			return fmt.Errorf("%w: %s expects %d, got %d", ErrArguments, name, min, len(args))
		}
		return fmt.Errorf("%w: %s expects %d to %d, got %d", ErrArguments, name, min, max, len(args))
	}
	return nil
}
