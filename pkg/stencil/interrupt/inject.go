// Package interrupt adds cooperative cancellation to compiled templates.
//
// Inject rewrites a tree once, before it is first rendered, so that every
// element with the repeater role runs a Checkpoint at the start of each
// execution of its nested block. A Checkpoint fails the render with
// ErrRenderCancelled as soon as the render's context is done. Renders are
// never interrupted anywhere else, so an abort always happens between loop
// iterations.
//
//	tree, _ := parse(src)
//	if err := interrupt.Inject(tree); err != nil {
//	    return err
//	}
//	ctx, cancel := context.WithTimeout(ctx, time.Second)
//	defer cancel()
//	err := render(ctx, tree) // errors.Is(err, interrupt.ErrRenderCancelled)
//
// Inject is not idempotent: a second run prepends a second checkpoint.
package interrupt

import (
	"github.com/benjaminschreck/stencil-text/pkg/stencil/ast"
)

// Inject adds a checkpoint to every repeater reachable from e, mutating the
// tree in place. Children are processed before their parent, so a malformed
// element found late leaves the changes already made below it in place.
func Inject(e ast.Element) error {
	if e == nil {
		return nil
	}

	nested := e.NestedBlock()
	if nested != nil {
		if err := Inject(nested); err != nil {
			return err
		}
	}
	regulated := e.RegulatedChildCount()
	for i := 0; i < regulated; i++ {
		if err := Inject(e.RegulatedChild(i)); err != nil {
			return err
		}
	}

	if e.Role() != ast.RoleRepeater {
		return nil
	}
	if regulated != 0 {
		return &InvariantError{Symbol: e.NodeTypeSymbol(), Location: e.Location(), Regulated: regulated}
	}

	chk, err := NewCheckpoint(e)
	if err != nil {
		return &PostProcessError{Location: e.Location(), Cause: err}
	}
	e.SetNestedBlock(prepend(e, chk, nested))
	return nil
}

// prepend returns the nested block of host with chk placed in front of body.
func prepend(host ast.Element, chk ast.Element, body ast.Element) ast.Element {
	switch b := body.(type) {
	case nil:
		return chk
	case *ast.MixedContent:
		b.InsertElement(0, chk)
		return b
	default:
		m := ast.NewMixedContent(chk, body)
		m.SetLocation(ast.Location{Template: host.Location().Template})
		return m
	}
}
