package ast

import (
	"fmt"
	"strings"

	"github.com/benjaminschreck/stencil-text/pkg/stencil/expr"
)

// TextBlock is literal template text.
type TextBlock struct {
	Base
	Content string
}

func (n *TextBlock) Role() Role { return RoleLeaf }

func (n *TextBlock) Accept(env Env) error {
	return env.Write(n.Content)
}

func (n *TextBlock) Dump(canonical bool) string { return n.Content }

func (n *TextBlock) NodeTypeSymbol() string { return "#text" }

// Interpolation prints the value of an expression.
type Interpolation struct {
	Base
	Source     string
	Expression expr.Node
}

func (n *Interpolation) Role() Role { return RoleLeaf }

func (n *Interpolation) Accept(env Env) error {
	v, err := env.Eval(n.Expression)
	if err != nil {
		return err
	}
	return env.Write(expr.FormatValue(v))
}

func (n *Interpolation) Dump(canonical bool) string {
	return "{{" + n.Source + "}}"
}

func (n *Interpolation) NodeTypeSymbol() string { return "{{...}}" }

func (n *Interpolation) ParameterCount() int { return 1 }

func (n *Interpolation) ParameterValue(i int) any {
	if i != 0 {
		return n.Base.ParameterValue(i)
	}
	return n.Source
}

// BranchKind tells which keyword opened a ConditionalBlock.
type BranchKind int

const (
	BranchIf BranchKind = iota
	BranchElsIf
	BranchElse
	BranchUnless
)

func (k BranchKind) String() string {
	switch k {
	case BranchIf:
		return "if"
	case BranchElsIf:
		return "elsif"
	case BranchElse:
		return "else"
	case BranchUnless:
		return "unless"
	default:
		return fmt.Sprintf("branch(%d)", int(k))
	}
}

// ConditionalBlock is one branch of an IfBlock. Its nested block runs at most once.
type ConditionalBlock struct {
	Base
	Kind      BranchKind
	Source    string
	Condition expr.Node // nil for BranchElse
}

func (n *ConditionalBlock) Role() Role { return RoleBlock }

// Holds reports whether the branch is selected.
func (n *ConditionalBlock) Holds(env Env) (bool, error) {
	if n.Kind == BranchElse {
		return true, nil
	}
	v, err := env.Eval(n.Condition)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate %s condition: %w", n.Kind.String(), err)
	}
	if n.Kind == BranchUnless {
		return !expr.IsTruthy(v), nil
	}
	return expr.IsTruthy(v), nil
}

func (n *ConditionalBlock) Accept(env Env) error {
	ok, err := n.Holds(env)
	if err != nil || !ok {
		return err
	}
	return n.visitNested(env)
}

func (n *ConditionalBlock) Dump(canonical bool) string {
	head := "{{" + n.Kind.String() + "}}"
	if n.Kind != BranchElse {
		head = "{{" + n.Kind.String() + " " + n.Source + "}}"
	}
	return head + n.dumpNested(canonical)
}

func (n *ConditionalBlock) NodeTypeSymbol() string { return "#" + n.Kind.String() }

func (n *ConditionalBlock) ParameterCount() int {
	if n.Kind == BranchElse {
		return 0
	}
	return 1
}

func (n *ConditionalBlock) ParameterValue(i int) any {
	if i != 0 || n.Kind == BranchElse {
		return n.Base.ParameterValue(i)
	}
	return n.Source
}

// IfBlock holds the branches of an if/unless chain as regulated children.
type IfBlock struct {
	Base
}

func (n *IfBlock) Role() Role { return RoleContainer }

// AddBranch appends a branch.
func (n *IfBlock) AddBranch(b *ConditionalBlock) {
	n.AddRegulatedChild(b)
}

func (n *IfBlock) Accept(env Env) error {
	for _, child := range n.children {
		branch, ok := child.(*ConditionalBlock)
		if !ok {
			return fmt.Errorf("if block at %s holds a %s, not a branch", n.loc, child.NodeTypeSymbol())
		}
		holds, err := branch.Holds(env)
		if err != nil {
			return err
		}
		if holds {
			return branch.visitNested(env)
		}
	}
	return nil
}

func (n *IfBlock) Dump(canonical bool) string {
	var sb strings.Builder
	for _, child := range n.children {
		sb.WriteString(child.Dump(canonical))
	}
	sb.WriteString("{{end}}")
	return sb.String()
}

func (n *IfBlock) NodeTypeSymbol() string { return "#if-elsif-else-container" }

// ForEach repeats its nested block once per item of a collection.
type ForEach struct {
	Base
	Variable   string
	IndexVar   string
	Source     string
	Collection expr.Node
}

func (n *ForEach) Role() Role { return RoleRepeater }

func (n *ForEach) Accept(env Env) error {
	v, err := env.Eval(n.Collection)
	if err != nil {
		return fmt.Errorf("failed to evaluate collection: %w", err)
	}
	items, err := expr.ToSequence(v)
	if err != nil {
		return fmt.Errorf("collection is not iterable: %w", err)
	}
	for i, count := 0, items.Len(); i < count; i++ {
		vars := map[string]any{n.Variable: items.At(i)}
		if n.IndexVar != "" {
			vars[n.IndexVar] = i
		}
		env.PushScope(vars)
		err := n.visitNested(env)
		env.PopScope()
		if err != nil {
			return err
		}
	}
	return nil
}

func (n *ForEach) Dump(canonical bool) string {
	vars := n.Variable
	if n.IndexVar != "" {
		vars = n.IndexVar + ", " + n.Variable
	}
	return "{{for " + vars + " in " + n.Source + "}}" + n.dumpNested(canonical) + "{{end}}"
}

func (n *ForEach) NodeTypeSymbol() string { return "#for" }

func (n *ForEach) ParameterCount() int { return 3 }

func (n *ForEach) ParameterValue(i int) any {
	switch i {
	case 0:
		return n.Variable
	case 1:
		return n.IndexVar
	case 2:
		return n.Source
	default:
		return n.Base.ParameterValue(i)
	}
}

// While repeats its nested block for as long as its condition is truthy.
type While struct {
	Base
	Source    string
	Condition expr.Node
}

func (n *While) Role() Role { return RoleRepeater }

func (n *While) Accept(env Env) error {
	for {
		v, err := env.Eval(n.Condition)
		if err != nil {
			return fmt.Errorf("failed to evaluate while condition: %w", err)
		}
		if !expr.IsTruthy(v) {
			return nil
		}
		if err := n.visitNested(env); err != nil {
			return err
		}
	}
}

func (n *While) Dump(canonical bool) string {
	return "{{while " + n.Source + "}}" + n.dumpNested(canonical) + "{{end}}"
}

func (n *While) NodeTypeSymbol() string { return "#while" }

func (n *While) ParameterCount() int { return 1 }

func (n *While) ParameterValue(i int) any {
	if i != 0 {
		return n.Base.ParameterValue(i)
	}
	return n.Source
}

// Include renders another prepared template in place.
type Include struct {
	Base
	Source string
	Name   expr.Node
}

func (n *Include) Role() Role { return RoleLeaf }

func (n *Include) Accept(env Env) error {
	v, err := env.Eval(n.Name)
	if err != nil {
		return fmt.Errorf("failed to evaluate include name: %w", err)
	}
	return env.Include(expr.FormatValue(v))
}

func (n *Include) Dump(canonical bool) string {
	return "{{include " + n.Source + "}}"
}

func (n *Include) NodeTypeSymbol() string { return "#include" }

func (n *Include) ParameterCount() int { return 1 }

func (n *Include) ParameterValue(i int) any {
	if i != 0 {
		return n.Base.ParameterValue(i)
	}
	return n.Source
}
