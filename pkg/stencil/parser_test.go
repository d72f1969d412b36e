package stencil

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminschreck/stencil-text/pkg/stencil/ast"
)

func TestParseOutline(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		dump  string
	}{
		{
			name:  "text and interpolation",
			input: "Hi {{name}}",
			want: `#mixed_content @1:1
  -#text @1:1
  -{{...}} [name] @1:4
`,
		},
		{
			name:  "empty loop body",
			input: "{{for x in xs}}{{end}}",
			want: `#mixed_content @1:1
  -#for [x, , xs] @1:1
`,
		},
		{
			name:  "single element loop body",
			input: "{{for x in xs}}{{x}}{{end}}",
			want: `#mixed_content @1:1
  -#for [x, , xs] @1:1
    ~{{...}} [x] @1:16
`,
		},
		{
			name:  "several elements in loop body",
			input: "{{while go}}a{{b}}{{end}}",
			want: `#mixed_content @1:1
  -#while [go] @1:1
    ~#mixed_content @1:13
      -#text @1:13
      -{{...}} [b] @1:14
`,
		},
		{
			name:  "if chain",
			input: "{{if a}}A{{elsif b}}{{else}}C{{end}}",
			want: `#mixed_content @1:1
  -#if-elsif-else-container @1:1
    -#if [a] @1:1
      ~#text @1:9
    -#elsif [b] @1:10
    -#else @1:21
      ~#text @1:29
`,
		},
		{
			name:  "comments are dropped",
			input: "{{for i, x in xs}}{{# ##cancellationCheck }}{{end}}",
			want: `#mixed_content @1:1
  -#for [x, i, xs] @1:1
`,
			dump: "{{for i, x in xs}}{{end}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := Parse("t", tt.input)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, ast.Outline(root)); diff != "" {
				t.Errorf("outline mismatch (-want +got):\n%s", diff)
			}
			dump := tt.dump
			if dump == "" {
				dump = tt.input
			}
			assert.Equal(t, dump, root.Dump(true), "canonical dump reproduces the source")
		})
	}
}

func TestParseEmpty(t *testing.T) {
	root, err := Parse("empty", "")
	require.NoError(t, err)
	assert.Equal(t, 0, root.RegulatedChildCount())
	assert.Equal(t, ast.Location{Template: "empty"}, root.Location())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
		line    int
		column  int
	}{
		{name: "unclosed for", input: "{{for x in xs}}", wantErr: "expected {{end}} to close for loop", line: 1, column: 1},
		{name: "unclosed if", input: "a\n  {{if x}}b", wantErr: "expected {{end}}", line: 2, column: 3},
		{name: "stray end", input: "a{{end}}", wantErr: "unexpected {{end}}", line: 1, column: 2},
		{name: "stray else", input: "{{else}}", wantErr: "unexpected {{else}}", line: 1, column: 1},
		{name: "missing in", input: "{{for x xs}}{{end}}", wantErr: "missing 'in'", line: 1, column: 1},
		{name: "bad loop variable", input: "{{for a.b in xs}}{{end}}", wantErr: "invalid loop variable", line: 1, column: 1},
		{name: "bad expression", input: "{{1 +}}", wantErr: "failed to parse expression", line: 1, column: 1},
		{name: "missing while condition", input: "{{while}}{{end}}", wantErr: "missing while condition", line: 1, column: 1},
		{name: "elsif after else", input: "{{if a}}{{else}}{{elsif b}}{{end}}", wantErr: "unexpected {{elsif}}", line: 1, column: 17},
		{name: "elsif in unless", input: "{{unless a}}{{elsif b}}{{end}}", wantErr: "unexpected {{elsif}}", line: 1, column: 13},
		{name: "duplicate else", input: "{{if a}}{{else}}{{else}}{{end}}", wantErr: "duplicate {{else}}", line: 1, column: 17},
		{name: "else in loop", input: "{{for x in xs}}{{else}}{{end}}", wantErr: "expected {{end}} to close for loop", line: 1, column: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("page", tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, IsTemplateError(err))

			var te *TemplateError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, "page", te.Template)
			assert.Equal(t, tt.line, te.Line)
			assert.Equal(t, tt.column, te.Column)
		})
	}
}
