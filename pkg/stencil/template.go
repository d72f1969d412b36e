package stencil

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/benjaminschreck/stencil-text/pkg/stencil/ast"
	"github.com/benjaminschreck/stencil-text/pkg/stencil/expr"
	"github.com/benjaminschreck/stencil-text/pkg/stencil/interrupt"
)

// TemplateData represents the data context for rendering templates.
// It's a map of key-value pairs where values can be strings, numbers,
// booleans, slices, maps, or any other type that can be accessed
// in template expressions.
//
// Example:
//
//	data := TemplateData{
//	    "name": "John Doe",
//	    "items": []map[string]interface{}{
//	        {"name": "Item 1", "price": 19.99},
//	        {"name": "Item 2", "price": 29.99},
//	    },
//	}
type TemplateData map[string]interface{}

// Template is a compiled template. Its element tree is fixed once compilation
// returns, so a Template may be rendered from many goroutines at once.
type Template struct {
	name        string
	root        *ast.MixedContent
	checkpoints int

	registry *expr.Registry
	resolver templateResolver
	config   *Config
}

// compile parses content and, unless disabled by config, injects the
// cancellation checkpoints. This is the only place the tree is mutated.
func compile(name, content string, config *Config, registry *expr.Registry, resolver templateResolver) (*Template, error) {
	logger := GetLogger().WithField("template", name)

	root, err := Parse(name, content)
	if err != nil {
		return nil, err
	}

	t := &Template{
		name:     name,
		root:     root,
		registry: registry,
		resolver: resolver,
		config:   config,
	}

	if config.DisableCancellationChecks {
		logger.Debug("Cancellation checks disabled, skipping checkpoint injection")
		return t, nil
	}
	if err := interrupt.Inject(root); err != nil {
		logger.Error("Checkpoint injection failed: %v", err)
		return nil, &CompileError{Template: name, Cause: err}
	}
	t.checkpoints = ast.Count(root, interrupt.CheckpointSymbol)
	logger.WithField("checkpoints", t.checkpoints).Debug("Injected cancellation checkpoints")
	return t, nil
}

// Compile compiles a standalone template with the global configuration and
// the built-in functions. Templates compiled this way cannot include others;
// use an Engine for that.
func Compile(name, content string) (*Template, error) {
	return compile(name, content, NewConfigWithDefaults(GetGlobalConfig()), expr.NewRegistry(), nil)
}

// Name returns the name the template was compiled under.
func (t *Template) Name() string {
	return t.name
}

// Root returns the compiled element tree. Callers must not modify it.
func (t *Template) Root() ast.Element {
	return t.root
}

// Checkpoints returns the number of cancellation checkpoints in the tree.
func (t *Template) Checkpoints() int {
	return t.checkpoints
}

// Render executes the template against data. The render stops at the next
// loop checkpoint once ctx is done, returning an error that matches
// interrupt.ErrRenderCancelled. On any error the partial output is discarded.
func (t *Template) Render(ctx context.Context, data TemplateData) (string, error) {
	env := newEnvironment(ctx, t, data)
	if err := env.Visit(t.root); err != nil {
		if IsCancelled(err) {
			GetLogger().WithFields(Fields{
				"template": t.name,
				"cause":    context.Cause(ctx),
			}).Info("Render cancelled")
		}
		return "", err
	}
	return env.output(), nil
}

// RenderTo renders into w. Nothing is written unless the render succeeds.
func (t *Template) RenderTo(ctx context.Context, w io.Writer, data TemplateData) error {
	out, err := t.Render(ctx, data)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, out); err != nil {
		return fmt.Errorf("failed to write output of %q: %w", t.name, err)
	}
	return nil
}

// RenderBatch renders the template once per data set, running at most limit
// renders at a time (limit <= 0 means no bound). The first failure cancels
// the remaining renders; results are returned in input order.
func (t *Template) RenderBatch(ctx context.Context, batch []TemplateData, limit int) ([]string, error) {
	results := make([]string, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, data := range batch {
		g.Go(func() error {
			out, err := t.Render(gctx, data)
			if err != nil {
				return fmt.Errorf("render %d of %q: %w", i, t.name, err)
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Dump renders the tree back to template source. The canonical form omits
// injected checkpoints and equals the dump of the uncompiled tree; the other
// form marks each checkpoint with a comment tag.
func (t *Template) Dump(canonical bool) string {
	return t.root.Dump(canonical)
}

// Outline returns an indented listing of the element tree.
func (t *Template) Outline() string {
	return ast.Outline(t.root)
}
