package interrupt_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminschreck/stencil-text/pkg/stencil/ast"
	"github.com/benjaminschreck/stencil-text/pkg/stencil/expr"
	"github.com/benjaminschreck/stencil-text/pkg/stencil/interrupt"
)

// recordingEnv is a minimal evaluator that collects output.
type recordingEnv struct {
	ctx context.Context
	out strings.Builder
}

func (e *recordingEnv) Context() context.Context { return e.ctx }
func (e *recordingEnv) Write(s string) error {
	e.out.WriteString(s)
	return nil
}
func (e *recordingEnv) Visit(el ast.Element) error { return el.Accept(e) }
func (e *recordingEnv) Eval(n expr.Node) (any, error) { return n.Evaluate(nil) }
func (e *recordingEnv) PushScope(map[string]any) {}
func (e *recordingEnv) PopScope() {}
func (e *recordingEnv) Include(string) error { return errors.New("no includes") }

func newCheckpoint(t *testing.T) *interrupt.Checkpoint {
	t.Helper()
	host := loop(at(3, 9), nil)
	chk, err := interrupt.NewCheckpoint(host)
	require.NoError(t, err)
	return chk
}

func TestCheckpoint_PassesWhileContextLive(t *testing.T) {
	env := &recordingEnv{ctx: context.Background()}
	chk := newCheckpoint(t)

	require.NoError(t, chk.Accept(env))
	assert.Empty(t, env.out.String())
}

func TestCheckpoint_FailsOnceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	env := &recordingEnv{ctx: ctx}
	chk := newCheckpoint(t)

	err := chk.Accept(env)

	require.Error(t, err)
	assert.True(t, interrupt.IsCancelled(err))
	assert.ErrorIs(t, err, interrupt.ErrRenderCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	var ce *interrupt.CancelledError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, chk.Location(), ce.Location)
	assert.Contains(t, err.Error(), "t:3:9")

	// The signal stays visible to whoever cancelled the render.
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.Error(t, chk.Accept(env), "checking again still reports the cancellation")
}

func TestCheckpoint_DeadlineExceeded(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	err := newCheckpoint(t).Accept(&recordingEnv{ctx: ctx})

	assert.ErrorIs(t, err, interrupt.ErrRenderCancelled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCheckpoint_Shape(t *testing.T) {
	chk := newCheckpoint(t)

	assert.Equal(t, ast.RoleLeaf, chk.Role())
	assert.Equal(t, "##cancellationCheck", chk.NodeTypeSymbol())
	assert.Equal(t, 0, chk.ParameterCount())
	assert.Equal(t, 0, chk.RegulatedChildCount())
	assert.Nil(t, chk.NestedBlock())
	assert.Panics(t, func() { chk.ParameterValue(0) })

	assert.Equal(t, "", chk.Dump(true))
	assert.Equal(t, "{{# ##cancellationCheck }}", chk.Dump(false))
}

func TestCheckpoint_InLoopBody(t *testing.T) {
	// An endless loop whose body cancels the render on its second pass.
	ctx, cancel := context.WithCancel(context.Background())
	env := &recordingEnv{ctx: ctx}

	printer := &cancelAfter{limit: 2, cancel: cancel}
	body := ast.NewMixedContent(printer)
	l := &ast.While{Source: "true", Condition: &expr.Literal{Value: true}}
	l.SetLocation(at(1, 1))
	l.SetNestedBlock(body)
	require.NoError(t, interrupt.Inject(l))

	err := env.Visit(l)

	require.ErrorIs(t, err, interrupt.ErrRenderCancelled)
	assert.Equal(t, "xx", env.out.String(), "no iteration starts after the cancellation")
}

// cancelAfter prints "x" and cancels the render after limit prints.
type cancelAfter struct {
	ast.Base
	limit  int
	n      int
	cancel context.CancelFunc
}

func (c *cancelAfter) Role() ast.Role { return ast.RoleLeaf }

func (c *cancelAfter) Accept(env ast.Env) error {
	c.n++
	if c.n >= c.limit {
		c.cancel()
	}
	return env.Write("x")
}

func (c *cancelAfter) Dump(bool) string { return "x" }
func (c *cancelAfter) NodeTypeSymbol() string { return "#print" }
