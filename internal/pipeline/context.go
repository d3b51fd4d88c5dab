package pipeline

import (
	"errors"

	"github.com/funvibe/liquid/internal/ast"
	"github.com/funvibe/liquid/internal/bytecode"
)

// Processor is one pipeline stage.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// PipelineContext carries a template through the stages.
type PipelineContext struct {
	Name   string
	Source string

	// Template is set by the parser stage.
	Template *ast.Template
	// Program is set by the compiler stage, or up front when loaded from a
	// bytecode cache.
	Program *bytecode.Program

	Errors []error
}

func NewPipelineContext(name, source string) *PipelineContext {
	return &PipelineContext{Name: name, Source: source}
}

// Failed reports whether any stage recorded an error.
func (c *PipelineContext) Failed() bool { return len(c.Errors) > 0 }

// Err joins every recorded error, or returns nil.
func (c *PipelineContext) Err() error { return errors.Join(c.Errors...) }
