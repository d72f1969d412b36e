package stencil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/benjaminschreck/stencil-text/pkg/stencil/expr"
	"github.com/benjaminschreck/stencil-text/pkg/stencil/interrupt"
)

// TemplateError represents an error in the template structure or syntax
type TemplateError struct {
	Template string
	Message  string
	Line     int
	Column   int
}

func (e *TemplateError) Error() string {
	prefix := "template error"
	if e.Template != "" {
		prefix = fmt.Sprintf("template error in %q", e.Template)
	}
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("%s at line %d, column %d: %s", prefix, e.Line, e.Column, e.Message)
	} else if e.Line > 0 {
		return fmt.Sprintf("%s at line %d: %s", prefix, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// NewTemplateError creates a new template error with position information
func NewTemplateError(template, message string, line, column int) error {
	return &TemplateError{
		Template: template,
		Message:  message,
		Line:     line,
		Column:   column,
	}
}

// CompileError reports a template that parsed but could not be prepared for
// rendering, typically because the cancellation pass rejected its tree.
type CompileError struct {
	Template string
	Cause    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("failed to compile template %q: %v", e.Template, e.Cause)
}

func (e *CompileError) Unwrap() error {
	return e.Cause
}

// IncludeError reports a failed {{include}}.
type IncludeError struct {
	Name  string
	Depth int
	Cause error
}

func (e *IncludeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("include %q at depth %d: %v", e.Name, e.Depth, e.Cause)
	}
	return fmt.Sprintf("include %q at depth %d failed", e.Name, e.Depth)
}

func (e *IncludeError) Unwrap() error {
	return e.Cause
}

// ValidationIssue represents a single validation problem
type ValidationIssue struct {
	Field   string
	Message string
}

// ValidationError represents multiple validation issues
type ValidationError struct {
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation error"
	}
	if len(e.Issues) == 1 {
		return fmt.Sprintf("validation error: %s - %s", e.Issues[0].Field, e.Issues[0].Message)
	}

	parts := []string{fmt.Sprintf("%d validation issues:", len(e.Issues))}
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("  %s: %s", issue.Field, issue.Message))
	}
	return strings.Join(parts, "\n")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Issues = append(e.Issues, ValidationIssue{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) err() error {
	if len(e.Issues) == 0 {
		return nil
	}
	return e
}

// RecoverError converts a panic recovery value to an error
func RecoverError(r any) error {
	switch v := r.(type) {
	case error:
		return fmt.Errorf("panic recovered: %w", v)
	case string:
		return fmt.Errorf("panic recovered: %s", v)
	default:
		return fmt.Errorf("panic recovered: %v", v)
	}
}

// IsTemplateError checks if an error is, or wraps, a template error
func IsTemplateError(err error) bool {
	var te *TemplateError
	return errors.As(err, &te)
}

// IsCompileError checks if an error is, or wraps, a compile error
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// IsEvaluationError checks if an error is, or wraps, an expression evaluation error
func IsEvaluationError(err error) bool {
	return expr.IsEvaluationError(err)
}

// IsCancelled reports whether a render stopped at a cancellation checkpoint.
func IsCancelled(err error) bool {
	return interrupt.IsCancelled(err)
}
