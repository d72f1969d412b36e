package stencil

import (
	"context"
	"fmt"
	"strings"

	"github.com/benjaminschreck/stencil-text/pkg/stencil/ast"
	"github.com/benjaminschreck/stencil-text/pkg/stencil/expr"
)

// templateResolver finds templates for {{include}}.
type templateResolver interface {
	Lookup(name string) (*Template, bool)
}

// Environment is the state of one render. It is created per call to Render
// and never shared between goroutines; the element tree it walks is.
type Environment struct {
	ctx      context.Context
	out      strings.Builder
	scopes   []map[string]any
	registry *expr.Registry
	resolver templateResolver
	config   *Config
	logger   *Logger

	// includeStack holds the names of the templates being rendered, outermost first.
	includeStack []string
}

func newEnvironment(ctx context.Context, t *Template, data TemplateData) *Environment {
	env := &Environment{
		ctx:          ctx,
		registry:     t.registry,
		resolver:     t.resolver,
		config:       t.config,
		logger:       GetLogger(),
		includeStack: []string{t.name},
	}
	env.scopes = append(env.scopes, map[string]any(data))
	return env
}

// Context returns the render's cancellation handle. The environment only
// hands it out; checkpoints in the tree are the ones that read it.
func (env *Environment) Context() context.Context {
	return env.ctx
}

func (env *Environment) Write(s string) error {
	env.out.WriteString(s)
	return nil
}

func (env *Environment) Visit(e ast.Element) error {
	return e.Accept(env)
}

func (env *Environment) Eval(n expr.Node) (any, error) {
	v, err := n.Evaluate(env)
	if err != nil {
		return nil, err
	}
	if env.logger.IsDebugMode() {
		env.logger.DebugExpression(n.String(), v)
	}
	return v, nil
}

func (env *Environment) PushScope(vars map[string]any) {
	env.scopes = append(env.scopes, vars)
}

func (env *Environment) PopScope() {
	if len(env.scopes) > 1 {
		env.scopes = env.scopes[:len(env.scopes)-1]
	}
}

// Lookup resolves name from the innermost scope outwards.
func (env *Environment) Lookup(name string) (any, error) {
	for i := len(env.scopes) - 1; i >= 0; i-- {
		if v, ok := env.scopes[i][name]; ok {
			return v, nil
		}
	}
	if env.config.StrictMode {
		return nil, expr.NewEvaluationError(name, fmt.Errorf("undefined variable: %s", name))
	}
	return nil, nil
}

func (env *Environment) Function(name string) (expr.Function, bool) {
	return env.registry.Get(name)
}

// Include renders the named template in place, sharing this render's scopes
// and context.
func (env *Environment) Include(name string) error {
	depth := len(env.includeStack)
	if depth > env.config.MaxRenderDepth {
		return &IncludeError{Name: name, Depth: depth, Cause: fmt.Errorf("maximum render depth exceeded: %d", env.config.MaxRenderDepth)}
	}
	for _, active := range env.includeStack {
		if active == name {
			return &IncludeError{Name: name, Depth: depth, Cause: fmt.Errorf("circular include: %s", strings.Join(append(env.includeStack, name), " -> "))}
		}
	}
	if env.resolver == nil {
		return &IncludeError{Name: name, Depth: depth, Cause: fmt.Errorf("no templates available for include")}
	}
	tmpl, ok := env.resolver.Lookup(name)
	if !ok {
		return &IncludeError{Name: name, Depth: depth, Cause: fmt.Errorf("template not found")}
	}

	env.includeStack = append(env.includeStack, name)
	defer func() {
		env.includeStack = env.includeStack[:len(env.includeStack)-1]
	}()
	if err := env.Visit(tmpl.root); err != nil {
		return &IncludeError{Name: name, Depth: depth, Cause: err}
	}
	return nil
}

func (env *Environment) output() string {
	return env.out.String()
}
