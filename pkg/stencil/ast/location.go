package ast

import "fmt"

// Location is the source span of an element. Lines and columns are 1-based;
// the zero Location means the element has no position.
type Location struct {
	Template    string
	BeginLine   int
	BeginColumn int
	EndLine     int
	EndColumn   int
}

// NewLocation validates the span and returns it.
func NewLocation(template string, beginLine, beginColumn, endLine, endColumn int) (Location, error) {
	loc := Location{
		Template:    template,
		BeginLine:   beginLine,
		BeginColumn: beginColumn,
		EndLine:     endLine,
		EndColumn:   endColumn,
	}
	if beginLine < 0 || beginColumn < 0 || endLine < 0 || endColumn < 0 {
		return Location{}, fmt.Errorf("invalid location %s: negative position", loc)
	}
	if (beginLine == 0) != (beginColumn == 0) || (endLine == 0) != (endColumn == 0) {
		return Location{}, fmt.Errorf("invalid location %s: line and column must both be set", loc)
	}
	if endLine < beginLine || (endLine == beginLine && endColumn < beginColumn) {
		return Location{}, fmt.Errorf("invalid location %s: end precedes begin", loc)
	}
	return loc, nil
}

// IsZero reports whether the location carries no line information.
func (l Location) IsZero() bool {
	return l.BeginLine == 0 && l.BeginColumn == 0
}

func (l Location) String() string {
	name := l.Template
	if name == "" {
		name = "<unnamed>"
	}
	if l.IsZero() {
		return name
	}
	if l.BeginLine == l.EndLine && l.BeginColumn == l.EndColumn {
		return fmt.Sprintf("%s:%d:%d", name, l.BeginLine, l.BeginColumn)
	}
	return fmt.Sprintf("%s:%d:%d-%d:%d", name, l.BeginLine, l.BeginColumn, l.EndLine, l.EndColumn)
}
