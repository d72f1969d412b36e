package stencil

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminschreck/stencil-text/pkg/stencil/ast"
	"github.com/benjaminschreck/stencil-text/pkg/stencil/expr"
	"github.com/benjaminschreck/stencil-text/pkg/stencil/interrupt"
)

func TestErrorTypes(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "TemplateError with position",
			err:     NewTemplateError("page", "invalid syntax", 10, 5),
			wantMsg: `template error in "page" at line 10, column 5: invalid syntax`,
		},
		{
			name:    "TemplateError with line only",
			err:     &TemplateError{Message: "invalid syntax", Line: 3},
			wantMsg: "template error at line 3: invalid syntax",
		},
		{
			name:    "TemplateError without position",
			err:     &TemplateError{Message: "empty"},
			wantMsg: "template error: empty",
		},
		{
			name:    "CompileError",
			err:     &CompileError{Template: "page", Cause: errors.New("bad tree")},
			wantMsg: `failed to compile template "page": bad tree`,
		},
		{
			name:    "IncludeError",
			err:     &IncludeError{Name: "row", Depth: 2, Cause: errors.New("template not found")},
			wantMsg: `include "row" at depth 2: template not found`,
		},
		{
			name:    "IncludeError without cause",
			err:     &IncludeError{Name: "row", Depth: 1},
			wantMsg: `include "row" at depth 1 failed`,
		},
		{
			name:    "ValidationError single",
			err:     &ValidationError{Issues: []ValidationIssue{{Field: "LogLevel", Message: "invalid"}}},
			wantMsg: "validation error: LogLevel - invalid",
		},
		{
			name: "ValidationError multiple",
			err: &ValidationError{Issues: []ValidationIssue{
				{Field: "A", Message: "bad"},
				{Field: "B", Message: "worse"},
			}},
			wantMsg: "2 validation issues:\n  A: bad\n  B: worse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.EqualError(t, tt.err, tt.wantMsg)
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	cause := errors.New("cause")
	templateErr := fmt.Errorf("wrapped: %w", NewTemplateError("t", "x", 1, 1))
	compileErr := &CompileError{Template: "t", Cause: cause}
	evalErr := &IncludeError{Name: "x", Cause: expr.NewEvaluationError("a", cause)}
	cancelled := &IncludeError{Name: "x", Cause: &interrupt.CancelledError{Cause: context.Canceled}}

	assert.True(t, IsTemplateError(templateErr))
	assert.False(t, IsTemplateError(compileErr))

	assert.True(t, IsCompileError(compileErr))
	assert.ErrorIs(t, compileErr, cause)

	assert.True(t, IsEvaluationError(evalErr))
	assert.ErrorIs(t, evalErr, cause)

	assert.True(t, IsCancelled(cancelled))
	assert.ErrorIs(t, cancelled, context.Canceled)
	assert.False(t, IsCancelled(evalErr))
}

func TestCompileError_FromInjection(t *testing.T) {
	root := ast.NewMixedContent(&ast.While{Source: "true"})
	root.Elements()[0].(*ast.While).SetLocation(ast.Location{Template: "t", BeginLine: 2})

	err := interrupt.Inject(root)
	require.Error(t, err)
	wrapped := &CompileError{Template: "t", Cause: err}

	assert.True(t, IsCompileError(wrapped))
	assert.ErrorIs(t, wrapped, interrupt.ErrPostProcessing)
}

func TestRecoverError(t *testing.T) {
	base := errors.New("inner")
	tests := []struct {
		in   any
		want string
	}{
		{base, "panic recovered: inner"},
		{"text", "panic recovered: text"},
		{42, "panic recovered: 42"},
	}
	for _, tt := range tests {
		assert.EqualError(t, RecoverError(tt.in), tt.want)
	}
	assert.ErrorIs(t, RecoverError(base), base)
}
