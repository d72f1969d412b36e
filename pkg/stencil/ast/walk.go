package ast

import (
	"fmt"
	"strings"
)

// Walk visits e and its descendants in pre-order: the element, its nested
// block, then its regulated children. Returning false from fn skips the
// element's descendants.
func Walk(e Element, fn func(Element) bool) {
	if e == nil || !fn(e) {
		return
	}
	Walk(e.NestedBlock(), fn)
	for i := 0; i < e.RegulatedChildCount(); i++ {
		Walk(e.RegulatedChild(i), fn)
	}
}

// Count returns how many elements under e (inclusive) have the given symbol.
func Count(e Element, symbol string) int {
	n := 0
	Walk(e, func(el Element) bool {
		if el.NodeTypeSymbol() == symbol {
			n++
		}
		return true
	})
	return n
}

// Outline renders the element tree one node per line, indented by depth.
// Nested blocks are prefixed with "~", regulated children with "-".
func Outline(e Element) string {
	var sb strings.Builder
	outline(&sb, e, 0, "")
	return sb.String()
}

func outline(sb *strings.Builder, e Element, depth int, edge string) {
	if e == nil {
		return
	}
	fmt.Fprintf(sb, "%s%s%s", strings.Repeat("  ", depth), edge, e.NodeTypeSymbol())
	if e.ParameterCount() > 0 {
		params := make([]string, e.ParameterCount())
		for i := range params {
			params[i] = fmt.Sprintf("%v", e.ParameterValue(i))
		}
		fmt.Fprintf(sb, " [%s]", strings.Join(params, ", "))
	}
	if loc := e.Location(); !loc.IsZero() {
		fmt.Fprintf(sb, " @%d:%d", loc.BeginLine, loc.BeginColumn)
	}
	sb.WriteByte('\n')
	outline(sb, e.NestedBlock(), depth+1, "~")
	for i := 0; i < e.RegulatedChildCount(); i++ {
		outline(sb, e.RegulatedChild(i), depth+1, "-")
	}
}
