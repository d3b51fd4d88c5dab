package compiler

import "github.com/funvibe/liquid/internal/pipeline"

// CompilerProcessor compiles ctx.Template into ctx.Program unless a program
// is already present.
type CompilerProcessor struct{}

func (CompilerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Failed() || ctx.Program != nil || ctx.Template == nil {
		return ctx
	}
	prog, err := Compile(ctx.Template)
	if err != nil {
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}
	ctx.Program = prog
	return ctx
}
