// Package ast defines the element tree a parsed template compiles to.
//
// Every element declares one Role. Tree passes dispatch on the role only, so a
// new element kind needs no pass changes as long as it reports its role honestly.
package ast

import (
	"context"
	"fmt"

	"github.com/benjaminschreck/stencil-text/pkg/stencil/expr"
)

// Role classifies how an element holds its children.
type Role int

const (
	// RoleLeaf elements have no children.
	RoleLeaf Role = iota
	// RoleContainer elements own a fixed, ordered list of regulated children.
	RoleContainer
	// RoleBlock elements own a nested block that is executed at most once per visit.
	RoleBlock
	// RoleRepeater elements own a nested block that is executed repeatedly.
	RoleRepeater
)

func (r Role) String() string {
	switch r {
	case RoleLeaf:
		return "leaf"
	case RoleContainer:
		return "container"
	case RoleBlock:
		return "block"
	case RoleRepeater:
		return "repeater"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Element is a node of the template tree.
type Element interface {
	Role() Role
	Location() Location

	RegulatedChildCount() int
	RegulatedChild(i int) Element

	NestedBlock() Element
	SetNestedBlock(e Element)

	// Accept evaluates the element against env.
	Accept(env Env) error

	// Dump renders the element back to template source. Canonical dumps omit
	// compiler-internal elements entirely.
	Dump(canonical bool) string
	NodeTypeSymbol() string

	ParameterCount() int
	ParameterValue(i int) any
}

// Env is the evaluator seen from inside an element.
type Env interface {
	// Context is the cancellation handle of the current render.
	Context() context.Context
	Write(s string) error
	Visit(e Element) error
	Eval(n expr.Node) (any, error)
	PushScope(vars map[string]any)
	PopScope()
	Include(name string) error
}

// Base carries the state shared by all element kinds. Concrete kinds embed it
// and add Role, Accept, Dump and NodeTypeSymbol.
type Base struct {
	loc      Location
	nested   Element
	children []Element
}

func (b *Base) Location() Location {
	return b.loc
}

func (b *Base) SetLocation(loc Location) {
	b.loc = loc
}

func (b *Base) RegulatedChildCount() int {
	return len(b.children)
}

func (b *Base) RegulatedChild(i int) Element {
	if i < 0 || i >= len(b.children) {
		panic(fmt.Sprintf("ast: regulated child index %d out of range [0,%d)", i, len(b.children)))
	}
	return b.children[i]
}

// AddRegulatedChild appends e to the regulated children.
func (b *Base) AddRegulatedChild(e Element) {
	b.children = append(b.children, e)
}

func (b *Base) NestedBlock() Element {
	return b.nested
}

func (b *Base) SetNestedBlock(e Element) {
	b.nested = e
}

func (b *Base) ParameterCount() int {
	return 0
}

func (b *Base) ParameterValue(i int) any {
	panic(fmt.Sprintf("ast: parameter index %d out of range [0,0)", i))
}

// dumpNested dumps the nested block, or nothing when it is absent.
func (b *Base) dumpNested(canonical bool) string {
	if b.nested == nil {
		return ""
	}
	return b.nested.Dump(canonical)
}

// visitNested evaluates the nested block, if any.
func (b *Base) visitNested(env Env) error {
	if b.nested == nil {
		return nil
	}
	return env.Visit(b.nested)
}
