// Package liquid renders Liquid templates with either a tree-walk
// interpreter or a bytecode VM.
//
//	env, err := liquid.NewEnvironment(liquid.WithLoader(loader.NewFileSystemLoader("templates")))
//	tmpl, err := env.GetTemplate("index.liquid")
//	out, err := tmpl.Render(map[string]any{"user": "ada"})
package liquid

import (
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tliron/commonlog"

	"github.com/funvibe/liquid/internal/backend"
	"github.com/funvibe/liquid/internal/cache"
	"github.com/funvibe/liquid/internal/config"
	"github.com/funvibe/liquid/internal/filter"
	"github.com/funvibe/liquid/internal/loader"
	"github.com/funvibe/liquid/internal/pipeline"
	"github.com/funvibe/liquid/internal/render"
)

// Mode decides what happens to render errors.
type Mode = render.Mode

const (
	Strict = render.Strict
	Warn   = render.Warn
	Lax    = render.Lax
)

// FilterFunc is the signature of a template filter.
type FilterFunc = filter.Func

// ErrTemplateNotFound is returned by GetTemplate for unknown names.
var ErrTemplateNotFound = loader.ErrTemplateNotFound

// Environment holds shared configuration for loading and rendering
// templates. It is safe for concurrent use once built.
type Environment struct {
	loader   loader.Loader
	globals  map[string]any
	filters  *filter.Registry
	mode     Mode
	backend  backend.Backend
	maxSteps int

	backendName string
	storePath   string
	store       *cache.Store
	cacheSize   int
	templates   *lru.Cache[string, *Template]

	// mu guards loads so that concurrent misses for one name parse once.
	mu  sync.RWMutex
	log commonlog.Logger
}

// Option configures an Environment.
type Option func(*Environment) error

// WithLoader sets where GetTemplate finds sources.
func WithLoader(l loader.Loader) Option {
	return func(e *Environment) error {
		e.loader = l
		return nil
	}
}

// WithGlobals sets variables visible to every template.
func WithGlobals(globals map[string]any) Option {
	return func(e *Environment) error {
		e.globals = globals
		return nil
	}
}

func WithMode(m Mode) Option {
	return func(e *Environment) error {
		e.mode = m
		return nil
	}
}

// WithBackend selects "vm" (the default) or "tree".
func WithBackend(name string) Option {
	return func(e *Environment) error {
		e.backendName = name
		return nil
	}
}

// WithMaxSteps bounds every VM render to n instructions.
func WithMaxSteps(n int) Option {
	return func(e *Environment) error {
		e.maxSteps = n
		return nil
	}
}

// WithFilter registers an extra filter, replacing any built-in of the same
// name for this environment only.
func WithFilter(name string, fn FilterFunc) Option {
	return func(e *Environment) error {
		e.filters.Register(name, fn)
		return nil
	}
}

// WithStore persists compiled programs in a sqlite file at path.
func WithStore(path string) Option {
	return func(e *Environment) error {
		e.storePath = path
		return nil
	}
}

// WithCacheSize bounds the in-memory template cache. Zero means unbounded.
func WithCacheSize(n int) Option {
	return func(e *Environment) error {
		e.cacheSize = n
		return nil
	}
}

// WithConfig applies a loaded configuration file.
func WithConfig(cfg *config.Config) Option {
	return func(e *Environment) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		mode, err := render.ParseMode(cfg.Mode)
		if err != nil {
			return err
		}
		e.mode = mode
		e.backendName = cfg.Backend
		e.maxSteps = cfg.MaxSteps
		e.storePath = cfg.Cache.Path
		e.cacheSize = cfg.Cache.Size
		e.loader = loader.NewFileSystemLoader(cfg.SearchPath...)
		return nil
	}
}

// NewEnvironment builds an environment. Without options it renders with
// the VM in strict mode and loads templates from the working directory.
func NewEnvironment(opts ...Option) (*Environment, error) {
	def := config.Default()
	e := &Environment{
		loader:      loader.NewFileSystemLoader(def.SearchPath...),
		filters:     filter.Default().Clone(),
		backendName: def.Backend,
		cacheSize:   def.Cache.Size,
		log:         commonlog.GetLogger("liquid"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	b, err := backend.New(e.backendName, e.maxSteps)
	if err != nil {
		return nil, err
	}
	e.backend = b
	if e.templates, err = cache.NewLRU[string, *Template](e.cacheSize); err != nil {
		return nil, err
	}

	if e.storePath != "" {
		if e.backend.Name() != "vm" {
			e.log.Warningf("bytecode store %s is unused by the %s backend", e.storePath, e.backend.Name())
		} else if e.store, err = cache.Open(e.storePath); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Close releases the bytecode store, if any.
func (e *Environment) Close() error {
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Backend names the execution backend in use.
func (e *Environment) Backend() string { return e.backend.Name() }

// FromString parses source into an unnamed template.
func (e *Environment) FromString(source string) (*Template, error) {
	return e.build(&loader.Source{Text: source}, nil)
}

// FromStringNamed parses source into a template called name. globals are
// visible to that template only.
func (e *Environment) FromStringNamed(name, source string, globals map[string]any) (*Template, error) {
	return e.build(&loader.Source{Name: name, Text: source, Filename: name}, globals)
}

// GetTemplate loads, parses and caches a template by name. A cached
// template is reloaded when its source has changed.
func (e *Environment) GetTemplate(name string) (*Template, error) {
	e.mu.RLock()
	t, ok := e.cached(name)
	e.mu.RUnlock()
	if ok {
		return t, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.cached(name); ok {
		return t, nil
	}

	src, err := e.loader.GetSource(name)
	if err != nil {
		return nil, err
	}
	t, err = e.build(src, nil)
	if err != nil {
		return nil, err
	}
	e.templates.Add(name, t)
	return t, nil
}

// cached returns a fresh cached template. Callers hold mu.
func (e *Environment) cached(name string) (*Template, bool) {
	t, ok := e.templates.Get(name)
	if !ok {
		return nil, false
	}
	if !t.IsUpToDate() {
		e.log.Debugf("reloading stale template %q", name)
		return nil, false
	}
	return t, true
}

// build runs the backend's pipeline stages over src, consulting the
// bytecode store first.
func (e *Environment) build(src *loader.Source, globals map[string]any) (*Template, error) {
	ctx := pipeline.NewPipelineContext(src.Name, src.Text)

	if e.store != nil && src.Name != "" {
		prog, err := e.store.Get(src.Name, src.Text)
		switch {
		case err == nil:
			ctx.Program = prog
		case !errors.Is(err, cache.ErrMiss):
			e.log.Warningf("bytecode store: %s", err)
		}
	}

	fromStore := ctx.Program != nil
	ctx = pipeline.New(e.backend.Stages()...).Run(ctx)
	if ctx.Failed() {
		return nil, ctx.Err()
	}

	if e.store != nil && src.Name != "" && !fromStore && ctx.Program != nil {
		if _, err := e.store.Put(src.Name, src.Text, ctx.Program); err != nil {
			e.log.Warningf("bytecode store: %s", err)
		}
	}

	return &Template{
		env:     e,
		Name:    src.Name,
		Path:    src.Filename,
		source:  src,
		ctx:     ctx,
		globals: globals,
		drop:    NewTemplateDrop(src.Name, src.Filename),
	}, nil
}

func (e *Environment) String() string {
	return fmt.Sprintf("Environment(backend=%s, mode=%s)", e.backend.Name(), e.mode)
}
