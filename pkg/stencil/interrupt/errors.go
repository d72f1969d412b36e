package interrupt

import (
	"errors"
	"fmt"

	"github.com/benjaminschreck/stencil-text/pkg/stencil/ast"
)

var (
	// ErrInternalInvariant marks a malformed tree handed to the pass. It always
	// indicates a defect in whatever built the tree, never a template error.
	ErrInternalInvariant = errors.New("internal invariant violation")

	// ErrPostProcessing marks a failure while building or attaching a checkpoint.
	ErrPostProcessing = errors.New("template post-processing failed")

	// ErrRenderCancelled marks a render aborted at a checkpoint.
	ErrRenderCancelled = errors.New("template render cancelled")
)

// InvariantError reports a repeater element that also has regulated children.
type InvariantError struct {
	Symbol    string
	Location  ast.Location
	Regulated int
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s at %s is a nested-block repeater but has %d regulated children",
		ErrInternalInvariant, e.Symbol, e.Location, e.Regulated)
}

func (e *InvariantError) Is(target error) bool {
	return target == ErrInternalInvariant
}

// PostProcessError wraps a lower-level failure hit while injecting a checkpoint.
type PostProcessError struct {
	Location ast.Location
	Cause    error
}

func (e *PostProcessError) Error() string {
	return fmt.Sprintf("%s at %s: %v", ErrPostProcessing, e.Location, e.Cause)
}

func (e *PostProcessError) Unwrap() error {
	return e.Cause
}

func (e *PostProcessError) Is(target error) bool {
	return target == ErrPostProcessing
}

// CancelledError is returned from a checkpoint whose render context was done.
// It unwraps to the context's error, so errors.Is matches both
// ErrRenderCancelled and context.Canceled or context.DeadlineExceeded.
type CancelledError struct {
	Location ast.Location
	Cause    error
}

func (e *CancelledError) Error() string {
	if e.Location.IsZero() && e.Location.Template == "" {
		return fmt.Sprintf("%s: %v", ErrRenderCancelled, e.Cause)
	}
	return fmt.Sprintf("%s at %s: %v", ErrRenderCancelled, e.Location, e.Cause)
}

func (e *CancelledError) Unwrap() error {
	return e.Cause
}

func (e *CancelledError) Is(target error) bool {
	return target == ErrRenderCancelled
}

// IsCancelled reports whether err is, or wraps, a cancelled render.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrRenderCancelled)
}
