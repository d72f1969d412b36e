package expr

import (
	"fmt"
	"strings"
)

// Scope resolves names while an expression is evaluated.
type Scope interface {
	// Lookup returns the value bound to name. Implementations decide whether an
	// unbound name is an error or a nil value.
	Lookup(name string) (any, error)
	Function(name string) (Function, bool)
}

// Node is a parsed expression.
type Node interface {
	String() string
	Evaluate(scope Scope) (any, error)
}

// Literal is a constant value.
type Literal struct {
	Value any
}

func (n *Literal) String() string {
	if s, ok := n.Value.(string); ok {
		return fmt.Sprintf("Literal(%q)", s)
	}
	return fmt.Sprintf("Literal(%v)", n.Value)
}

func (n *Literal) Evaluate(Scope) (any, error) {
	return n.Value, nil
}

// Variable is a reference to a name in scope.
type Variable struct {
	Name string
}

func (n *Variable) String() string {
	return fmt.Sprintf("Variable(%s)", n.Name)
}

func (n *Variable) Evaluate(scope Scope) (any, error) {
	return scope.Lookup(n.Name)
}

// Binary is a binary operation.
type Binary struct {
	Left     Node
	Operator string
	Right    Node
}

func (n *Binary) String() string {
	return fmt.Sprintf("BinaryOp(%s %s %s)", n.Left, n.Operator, n.Right)
}

func (n *Binary) Evaluate(scope Scope) (any, error) {
	left, err := n.Left.Evaluate(scope)
	if err != nil {
		return nil, err
	}
	// Logical operators short-circuit.
	switch n.Operator {
	case "&&", "&":
		if !IsTruthy(left) {
			return false, nil
		}
	case "||", "|":
		if IsTruthy(left) {
			return true, nil
		}
	}
	right, err := n.Right.Evaluate(scope)
	if err != nil {
		return nil, err
	}
	return BinaryOp(left, n.Operator, right)
}

// Unary is a prefix operation.
type Unary struct {
	Operator string
	Operand  Node
}

func (n *Unary) String() string {
	return fmt.Sprintf("UnaryOp(%s %s)", n.Operator, n.Operand)
}

func (n *Unary) Evaluate(scope Scope) (any, error) {
	v, err := n.Operand.Evaluate(scope)
	if err != nil {
		return nil, err
	}
	switch n.Operator {
	case "!":
		return !IsTruthy(v), nil
	case "-":
		if i, ok := v.(int); ok {
			return -i, nil
		}
		f, ok := ToFloat64(v)
		if !ok {
			return nil, fmt.Errorf("cannot negate %T", v)
		}
		return -f, nil
	default:
		return nil, fmt.Errorf("unknown unary operator: %s", n.Operator)
	}
}

// FieldAccess reads a field of a map or struct.
type FieldAccess struct {
	Object Node
	Field  string
}

func (n *FieldAccess) String() string {
	return fmt.Sprintf("FieldAccess(%s.%s)", n.Object, n.Field)
}

func (n *FieldAccess) Evaluate(scope Scope) (any, error) {
	obj, err := n.Object.Evaluate(scope)
	if err != nil {
		return nil, err
	}
	return Field(obj, n.Field), nil
}

// IndexAccess reads obj[index].
type IndexAccess struct {
	Object Node
	Index  Node
}

func (n *IndexAccess) String() string {
	return fmt.Sprintf("IndexAccess(%s[%s])", n.Object, n.Index)
}

func (n *IndexAccess) Evaluate(scope Scope) (any, error) {
	obj, err := n.Object.Evaluate(scope)
	if err != nil {
		return nil, err
	}
	idx, err := n.Index.Evaluate(scope)
	if err != nil {
		return nil, err
	}
	return Index(obj, idx)
}

// Call invokes a registered function.
type Call struct {
	Name string
	Args []Node
}

func (n *Call) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("FunctionCall(%s, [%s])", n.Name, strings.Join(args, ", "))
}

func (n *Call) Evaluate(scope Scope) (any, error) {
	fn, ok := scope.Function(n.Name)
	if !ok {
		return nil, NewEvaluationError(n.String(), fmt.Errorf("unknown function: %s", n.Name))
	}
	args := make([]any, len(n.Args))
	for i, a := range n.Args {
		v, err := a.Evaluate(scope)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate argument %d for function %s: %w", i, n.Name, err)
		}
		args[i] = v
	}
	v, err := fn.Call(args...)
	if err != nil {
		return nil, NewEvaluationError(n.String(), err)
	}
	return v, nil
}
