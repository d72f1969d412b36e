package ast

import (
	"fmt"
	"strings"
)

// MixedContent is an ordered sequence of sibling elements, evaluated in turn.
// Its members are its regulated children.
type MixedContent struct {
	Base
}

// NewMixedContent returns a container holding elems in order.
func NewMixedContent(elems ...Element) *MixedContent {
	m := &MixedContent{}
	for _, e := range elems {
		m.AddElement(e)
	}
	return m
}

func (m *MixedContent) Role() Role {
	return RoleContainer
}

// AddElement appends e.
func (m *MixedContent) AddElement(e Element) {
	m.children = append(m.children, e)
}

// InsertElement inserts e at index i, shifting later members right.
func (m *MixedContent) InsertElement(i int, e Element) {
	if i < 0 || i > len(m.children) {
		panic(fmt.Sprintf("ast: insert index %d out of range [0,%d]", i, len(m.children)))
	}
	m.children = append(m.children, nil)
	copy(m.children[i+1:], m.children[i:])
	m.children[i] = e
}

// Elements returns the members in evaluation order.
func (m *MixedContent) Elements() []Element {
	out := make([]Element, len(m.children))
	copy(out, m.children)
	return out
}

func (m *MixedContent) Accept(env Env) error {
	for _, e := range m.children {
		if err := env.Visit(e); err != nil {
			return err
		}
	}
	return nil
}

func (m *MixedContent) Dump(canonical bool) string {
	var sb strings.Builder
	for _, e := range m.children {
		sb.WriteString(e.Dump(canonical))
	}
	return sb.String()
}

func (m *MixedContent) NodeTypeSymbol() string {
	return "#mixed_content"
}
