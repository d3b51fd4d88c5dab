package backend

import (
	"fmt"
	"io"

	"github.com/funvibe/liquid/internal/compiler"
	"github.com/funvibe/liquid/internal/parser"
	"github.com/funvibe/liquid/internal/pipeline"
	"github.com/funvibe/liquid/internal/render"
	"github.com/funvibe/liquid/internal/vm"
)

// VMBackend executes templates with the bytecode VM.
type VMBackend struct {
	maxSteps int
}

// NewVM creates a VM backend. A positive maxSteps bounds every run.
func NewVM(maxSteps int) *VMBackend {
	return &VMBackend{maxSteps: maxSteps}
}

func (b *VMBackend) Render(ctx *pipeline.PipelineContext, rctx *render.Context, w io.Writer) error {
	if ctx.Program == nil {
		return fmt.Errorf("%s: no program to run", ctx.Name)
	}
	machine := vm.New(ctx.Program)
	machine.SetMaxSteps(b.maxSteps)
	return machine.Run(rctx, w)
}

func (b *VMBackend) Name() string {
	return "vm"
}

func (b *VMBackend) Stages() []pipeline.Processor {
	return []pipeline.Processor{parser.ParserProcessor{}, compiler.CompilerProcessor{}}
}
