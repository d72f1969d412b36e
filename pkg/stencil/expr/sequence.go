package expr

import (
	"fmt"
	"strings"
)

// Sequence is an indexable run of items a for loop can walk one at a time.
type Sequence interface {
	Len() int
	At(i int) any
}

// Range is the integer sequence returned by range(). Its items are computed
// on demand, so a loop over a huge range costs nothing up front.
type Range struct {
	Start, End, Step int
}

func (r Range) Len() int {
	switch {
	case r.Step > 0 && r.Start < r.End:
		return int((uint(r.End-r.Start) + uint(r.Step) - 1) / uint(r.Step))
	case r.Step < 0 && r.Start > r.End:
		return int((uint(r.Start-r.End) + uint(-r.Step) - 1) / uint(-r.Step))
	}
	return 0
}

func (r Range) At(i int) any {
	return r.Start + i*r.Step
}

// maxPrintedItems bounds how much of a range String spells out.
const maxPrintedItems = 1000

// String prints the range like the equivalent slice, eliding items past
// maxPrintedItems.
func (r Range) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	n := r.Len()
	for i := 0; i < n && i < maxPrintedItems; i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprint(&sb, r.At(i))
	}
	if n > maxPrintedItems {
		sb.WriteString(" ...")
	}
	sb.WriteByte(']')
	return sb.String()
}

type sliceSequence []any

func (s sliceSequence) Len() int { return len(s) }
func (s sliceSequence) At(i int) any { return s[i] }

// ToSequence returns what a for loop iterates over. Ranges stay lazy; every
// other iterable value is expanded with ToSlice.
func ToSequence(v any) (Sequence, error) {
	if r, ok := v.(Range); ok {
		return r, nil
	}
	items, err := ToSlice(v)
	if err != nil {
		return nil, err
	}
	return sliceSequence(items), nil
}
