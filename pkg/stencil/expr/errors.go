package expr

import (
	"errors"
	"fmt"
)

// EvaluationError is an expression that failed at render time.
type EvaluationError struct {
	Expression string
	Cause      error
}

func (e *EvaluationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("evaluation error for expression '%s': %v", e.Expression, e.Cause)
	}
	return fmt.Sprintf("evaluation error for expression '%s'", e.Expression)
}

func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// NewEvaluationError creates a new evaluation error.
func NewEvaluationError(expression string, cause error) error {
	return &EvaluationError{Expression: expression, Cause: cause}
}

// IsEvaluationError reports whether err wraps an EvaluationError.
func IsEvaluationError(err error) bool {
	var target *EvaluationError
	return errors.As(err, &target)
}
