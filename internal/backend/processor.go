package backend

import (
	"io"

	"github.com/funvibe/liquid/internal/pipeline"
	"github.com/funvibe/liquid/internal/render"
)

// ExecutionProcessor is the final pipeline stage: it renders with Backend
// into Out.
type ExecutionProcessor struct {
	Backend Backend
	Context *render.Context
	Out     io.Writer
}

func NewExecutionProcessor(b Backend, rctx *render.Context, out io.Writer) *ExecutionProcessor {
	return &ExecutionProcessor{Backend: b, Context: rctx, Out: out}
}

func (p *ExecutionProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	// If previous steps failed, don't run execution
	if ctx.Failed() {
		return ctx
	}
	if err := p.Backend.Render(ctx, p.Context, p.Out); err != nil {
		ctx.Errors = append(ctx.Errors, err)
	}
	return ctx
}

// Pipeline builds the full pipeline for b ending in execution.
func Pipeline(b Backend, rctx *render.Context, out io.Writer) *pipeline.Pipeline {
	stages := append(b.Stages(), NewExecutionProcessor(b, rctx, out))
	return pipeline.New(stages...)
}
