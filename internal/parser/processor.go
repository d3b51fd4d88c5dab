package parser

import "github.com/funvibe/liquid/internal/pipeline"

// ParserProcessor parses ctx.Source into ctx.Template. It does nothing when
// a compiled program is already present.
type ParserProcessor struct{}

func (ParserProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Failed() || ctx.Template != nil || ctx.Program != nil {
		return ctx
	}
	tmpl, err := Parse(ctx.Name, ctx.Source)
	if err != nil {
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}
	ctx.Template = tmpl
	return ctx
}
