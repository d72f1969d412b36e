package interrupt

import (
	"github.com/benjaminschreck/stencil-text/pkg/stencil/ast"
)

// CheckpointSymbol identifies injected checkpoints in dumps and tree tooling.
const CheckpointSymbol = "##cancellationCheck"

// Checkpoint aborts the render when the render's context is done. It is a
// stateless leaf and safe to evaluate from any number of renders at once.
type Checkpoint struct {
	ast.Base
}

// NewCheckpoint builds a checkpoint positioned at the begin of host. An
// unlocated host yields an unlocated checkpoint.
func NewCheckpoint(host ast.Element) (*Checkpoint, error) {
	c := &Checkpoint{}
	hl := host.Location()
	if hl.IsZero() {
		c.SetLocation(ast.Location{Template: hl.Template})
		return c, nil
	}
	loc, err := ast.NewLocation(hl.Template, hl.BeginLine, hl.BeginColumn, hl.BeginLine, hl.BeginColumn)
	if err != nil {
		return nil, err
	}
	c.SetLocation(loc)
	return c, nil
}

func (c *Checkpoint) Role() ast.Role {
	return ast.RoleLeaf
}

// Accept reads the context's state without touching it, so callers above the
// render can still see the cancellation after the error unwinds.
func (c *Checkpoint) Accept(env ast.Env) error {
	if err := env.Context().Err(); err != nil {
		return &CancelledError{Location: c.Location(), Cause: err}
	}
	return nil
}

func (c *Checkpoint) Dump(canonical bool) string {
	if canonical {
		return ""
	}
	return "{{# " + CheckpointSymbol + " }}"
}

func (c *Checkpoint) NodeTypeSymbol() string {
	return CheckpointSymbol
}
