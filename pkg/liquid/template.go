package liquid

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/funvibe/liquid/internal/backend"
	"github.com/funvibe/liquid/internal/bytecode"
	"github.com/funvibe/liquid/internal/config"
	"github.com/funvibe/liquid/internal/loader"
	"github.com/funvibe/liquid/internal/pipeline"
	"github.com/funvibe/liquid/internal/render"
)

// Template is a parsed (and, for the VM backend, compiled) template. It is
// safe to render concurrently.
type Template struct {
	env *Environment

	Name string
	Path string

	source  *loader.Source
	ctx     *pipeline.PipelineContext
	globals map[string]any
	drop    *TemplateDrop
}

// Render renders the template with data and returns the output.
func (t *Template) Render(data map[string]any) (string, error) {
	var sb strings.Builder
	err := t.RenderTo(context.Background(), &sb, data)
	return sb.String(), err
}

// RenderTo renders into w. Cancelling ctx stops loops mid-way.
func (t *Template) RenderTo(ctx context.Context, w io.Writer, data map[string]any) error {
	rctx := render.New(render.Options{
		Globals:  render.Chain{render.Map(data), render.Map(t.globals), render.Map(t.env.globals)},
		Filters:  t.env.filters,
		Mode:     t.env.mode,
		Logger:   t.env.log,
		RenderID: uuid.NewString(),
		Context:  ctx,
	})
	inner, err := rctx.Extend(render.Map{
		config.TemplateDropName: t.drop,
		"partial":               false,
	})
	if err != nil {
		return err
	}

	// Each render gets its own pipeline context so Errors are not shared.
	pctx := *t.ctx
	pctx.Errors = nil
	result := pipeline.New(backend.NewExecutionProcessor(t.env.backend, inner, w)).Run(&pctx)
	if result.Failed() {
		err := result.Err()
		t.env.log.Debugf("render %s of %q failed: %s", rctx.RenderID(), t.Name, err)
		return err
	}
	return nil
}

// IsUpToDate is false once the template's source has changed on disk.
func (t *Template) IsUpToDate() bool {
	return !t.source.Stale()
}

// Program returns the compiled program, or nil with the tree backend.
func (t *Template) Program() *bytecode.Program {
	return t.ctx.Program
}

// Disassemble lists the compiled program.
func (t *Template) Disassemble() (string, error) {
	if t.ctx.Program == nil {
		return "", fmt.Errorf("%s: not compiled by the %s backend", t.Name, t.env.backend.Name())
	}
	return bytecode.Disassemble(t.ctx.Program), nil
}

func (t *Template) String() string {
	return fmt.Sprintf("Template(name='%s', path='%s', uptodate=%t)", t.Name, t.Path, t.IsUpToDate())
}

// TemplateDrop exposes a template's name, directory and suffix to the
// template itself as `template`.
type TemplateDrop struct {
	Name      string
	Directory string
	// Suffix is the inner extension of a doubly-suffixed file such as
	// page.html.liquid, or nil.
	Suffix any
	stem   string
}

func NewTemplateDrop(name, path string) *TemplateDrop {
	if path == "" {
		path = name
	}
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	d := &TemplateDrop{
		Name:      strings.SplitN(base, ".", 2)[0],
		Directory: filepath.Base(filepath.Dir(path)),
		stem:      stem,
	}
	if d.Directory == "." || d.Directory == string(filepath.Separator) {
		d.Directory = ""
	}
	if i := strings.LastIndex(stem, "."); i >= 0 {
		d.Suffix = stem[i+1:]
	}
	return d
}

func (d *TemplateDrop) Get(key string) (any, bool) {
	switch key {
	case "name":
		return d.Name, true
	case "directory":
		return d.Directory, true
	case "suffix":
		return d.Suffix, true
	}
	return nil, false
}

func (d *TemplateDrop) String() string { return d.stem }
