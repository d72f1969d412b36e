package interrupt_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminschreck/stencil-text/pkg/stencil/ast"
	"github.com/benjaminschreck/stencil-text/pkg/stencil/interrupt"
)

func text(s string) *ast.TextBlock {
	return &ast.TextBlock{Content: s}
}

func loop(loc ast.Location, body ast.Element) *ast.ForEach {
	l := &ast.ForEach{Variable: "x", Source: "xs"}
	l.SetLocation(loc)
	l.SetNestedBlock(body)
	return l
}

func at(line, col int) ast.Location {
	return ast.Location{Template: "t", BeginLine: line, BeginColumn: col, EndLine: line + 1, EndColumn: 7}
}

// badRepeater claims the repeater role while holding regulated children.
type badRepeater struct {
	ast.Base
}

func (b *badRepeater) Role() ast.Role { return ast.RoleRepeater }
func (b *badRepeater) Accept(ast.Env) error { return nil }
func (b *badRepeater) Dump(canonical bool) string { return "" }
func (b *badRepeater) NodeTypeSymbol() string { return "#bad" }

func symbols(e ast.Element) []string {
	var out []string
	ast.Walk(e, func(el ast.Element) bool {
		out = append(out, el.NodeTypeSymbol())
		return true
	})
	return out
}

func TestInject_EmptyBodyBecomesCheckpoint(t *testing.T) {
	l := loop(at(2, 5), nil)

	require.NoError(t, interrupt.Inject(l))

	chk, ok := l.NestedBlock().(*interrupt.Checkpoint)
	require.True(t, ok, "nested block is %T", l.NestedBlock())
	assert.Equal(t, interrupt.CheckpointSymbol, chk.NodeTypeSymbol())
}

func TestInject_MixedContentBodyGetsCheckpointFirst(t *testing.T) {
	a, b := text("a"), text("b")
	body := ast.NewMixedContent(a, b)
	l := loop(at(1, 1), body)

	require.NoError(t, interrupt.Inject(l))

	assert.Same(t, body, l.NestedBlock(), "existing container must be reused")
	elems := body.Elements()
	require.Len(t, elems, 3)
	assert.IsType(t, &interrupt.Checkpoint{}, elems[0])
	assert.Same(t, a, elems[1])
	assert.Same(t, b, elems[2])
}

func TestInject_SingleBodyIsWrapped(t *testing.T) {
	b := text("b")
	l := loop(at(4, 3), b)

	require.NoError(t, interrupt.Inject(l))

	m, ok := l.NestedBlock().(*ast.MixedContent)
	require.True(t, ok, "nested block is %T", l.NestedBlock())
	elems := m.Elements()
	require.Len(t, elems, 2)
	assert.IsType(t, &interrupt.Checkpoint{}, elems[0])
	assert.Same(t, b, elems[1])
	assert.Equal(t, "t", m.Location().Template)
}

func TestInject_EveryRepeaterStartsWithCheckpoint(t *testing.T) {
	// for { if { while { text } } for { } }
	inner := &ast.While{Source: "true"}
	inner.SetLocation(at(3, 1))
	inner.SetNestedBlock(text("w"))

	branch := &ast.ConditionalBlock{Kind: ast.BranchIf, Source: "c"}
	branch.SetNestedBlock(inner)
	cond := &ast.IfBlock{}
	cond.AddBranch(branch)

	empty := loop(at(5, 1), nil)
	outer := loop(at(1, 1), ast.NewMixedContent(cond, empty))
	root := ast.NewMixedContent(text("head"), outer)

	require.NoError(t, interrupt.Inject(root))

	repeaters := 0
	ast.Walk(root, func(e ast.Element) bool {
		if e.Role() != ast.RoleRepeater {
			return true
		}
		repeaters++
		first := e.NestedBlock()
		if m, ok := first.(*ast.MixedContent); ok {
			first = m.Elements()[0]
		}
		assert.Equal(t, interrupt.CheckpointSymbol, first.NodeTypeSymbol(), "repeater %s", e.NodeTypeSymbol())
		return true
	})
	assert.Equal(t, 3, repeaters)
	assert.Equal(t, 3, ast.Count(root, interrupt.CheckpointSymbol))

	// Branches run at most once and stay untouched.
	assert.Same(t, inner, branch.NestedBlock())
}

func TestInject_LeavesNonRepeatersUnchanged(t *testing.T) {
	a, x := text("a"), text("x")
	branch := &ast.ConditionalBlock{Kind: ast.BranchElse}
	branch.SetNestedBlock(x)
	cond := &ast.IfBlock{}
	cond.AddBranch(branch)
	v := &ast.Interpolation{Source: "v"}
	root := ast.NewMixedContent(a, cond, v)

	before := symbols(root)
	require.NoError(t, interrupt.Inject(root))

	if diff := cmp.Diff(before, symbols(root)); diff != "" {
		t.Errorf("tree changed (-before +after):\n%s", diff)
	}

	elems := root.Elements()
	require.Len(t, elems, 3)
	assert.Same(t, a, elems[0])
	assert.Same(t, cond, elems[1])
	assert.Same(t, v, elems[2])

	require.Equal(t, 1, cond.RegulatedChildCount())
	assert.Same(t, branch, cond.RegulatedChild(0))
	assert.Same(t, x, branch.NestedBlock())
	assert.Zero(t, branch.RegulatedChildCount())
}

func TestInject_NilRoot(t *testing.T) {
	assert.NoError(t, interrupt.Inject(nil))
}

func TestInject_NotIdempotent(t *testing.T) {
	l := loop(at(1, 1), text("b"))

	require.NoError(t, interrupt.Inject(l))
	require.NoError(t, interrupt.Inject(l))

	m := l.NestedBlock().(*ast.MixedContent)
	got := make([]string, 0, m.RegulatedChildCount())
	for _, e := range m.Elements() {
		got = append(got, e.NodeTypeSymbol())
	}
	want := []string{interrupt.CheckpointSymbol, interrupt.CheckpointSymbol, "#text"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestInject_CheckpointLocation(t *testing.T) {
	tests := []struct {
		name string
		host ast.Location
		want ast.Location
	}{
		{
			name: "located host",
			host: ast.Location{Template: "page", BeginLine: 7, BeginColumn: 12, EndLine: 9, EndColumn: 3},
			want: ast.Location{Template: "page", BeginLine: 7, BeginColumn: 12, EndLine: 7, EndColumn: 12},
		},
		{
			name: "unlocated host",
			host: ast.Location{Template: "page"},
			want: ast.Location{Template: "page"},
		},
		{
			name: "no template name",
			host: ast.Location{},
			want: ast.Location{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := loop(tt.host, nil)
			require.NoError(t, interrupt.Inject(l))
			assert.Equal(t, tt.want, l.NestedBlock().Location())
		})
	}
}

func TestInject_RepeaterWithRegulatedChildren(t *testing.T) {
	deep := loop(at(2, 1), nil)
	bad := &badRepeater{}
	bad.SetLocation(at(1, 1))
	bad.SetNestedBlock(deep)
	bad.AddRegulatedChild(text("x"))
	root := ast.NewMixedContent(bad)

	err := interrupt.Inject(root)

	require.Error(t, err)
	assert.True(t, errors.Is(err, interrupt.ErrInternalInvariant))
	var inv *interrupt.InvariantError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, "#bad", inv.Symbol)
	assert.Equal(t, 1, inv.Regulated)
	assert.Equal(t, at(1, 1), inv.Location)

	// Work done below the faulty element is kept.
	assert.IsType(t, &interrupt.Checkpoint{}, deep.NestedBlock())
	assert.Same(t, deep, bad.NestedBlock())
}

func TestInject_StopsAtFirstViolation(t *testing.T) {
	first := &badRepeater{}
	first.AddRegulatedChild(text("x"))
	later := loop(at(3, 1), nil)
	root := ast.NewMixedContent(first, later)

	require.ErrorIs(t, interrupt.Inject(root), interrupt.ErrInternalInvariant)
	assert.Nil(t, later.NestedBlock(), "siblings after the violation are not visited")
}

func TestInject_MalformedHostLocation(t *testing.T) {
	// A line without a column cannot anchor a checkpoint.
	l := loop(ast.Location{Template: "t", BeginLine: 3}, text("b"))

	err := interrupt.Inject(l)

	require.ErrorIs(t, err, interrupt.ErrPostProcessing)
	var ppe *interrupt.PostProcessError
	require.ErrorAs(t, err, &ppe)
	assert.Error(t, errors.Unwrap(err))
	assert.Contains(t, err.Error(), "line and column")
	assert.IsType(t, &ast.TextBlock{}, l.NestedBlock(), "failed injection leaves the body alone")
}
