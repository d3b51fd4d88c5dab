package backend

import (
	"fmt"
	"io"

	"github.com/funvibe/liquid/internal/parser"
	"github.com/funvibe/liquid/internal/pipeline"
	"github.com/funvibe/liquid/internal/render"
)

// TreeWalkBackend renders the parsed template directly.
type TreeWalkBackend struct{}

func NewTreeWalk() *TreeWalkBackend {
	return &TreeWalkBackend{}
}

func (b *TreeWalkBackend) Render(ctx *pipeline.PipelineContext, rctx *render.Context, w io.Writer) error {
	if ctx.Template == nil {
		return fmt.Errorf("%s: no template to render", ctx.Name)
	}
	return ctx.Template.Render(rctx, w)
}

func (b *TreeWalkBackend) Name() string {
	return "tree-walk"
}

func (b *TreeWalkBackend) Stages() []pipeline.Processor {
	return []pipeline.Processor{parser.ParserProcessor{}}
}
