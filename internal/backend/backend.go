// Package backend provides an interface for the two execution backends.
// This allows switching between the tree-walk interpreter and the VM.
package backend

import (
	"fmt"
	"io"

	"github.com/funvibe/liquid/internal/config"
	"github.com/funvibe/liquid/internal/pipeline"
	"github.com/funvibe/liquid/internal/render"
)

// Backend is the interface for execution backends.
type Backend interface {
	// Render executes the template held by the pipeline context.
	Render(ctx *pipeline.PipelineContext, rctx *render.Context, w io.Writer) error

	// Name returns the backend name for display.
	Name() string

	// Stages lists the pipeline stages this backend needs before Render.
	Stages() []pipeline.Processor
}

// New returns the backend called name. maxSteps only applies to the VM.
func New(name string, maxSteps int) (Backend, error) {
	switch name {
	case config.BackendVM, "":
		return NewVM(maxSteps), nil
	case config.BackendTree:
		return NewTreeWalk(), nil
	}
	return nil, fmt.Errorf("unknown backend %q (want %s or %s)", name, config.BackendVM, config.BackendTree)
}
