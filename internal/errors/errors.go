// Package errors provides a lightweight structured error type (BuildError)
// for category-based classification of compilation failures in the CLI.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the category of a build error for classification.
type ErrorCategory string

const (
	// Configuration and startup errors; fatal before any compilation begins.
	CategoryConfig ErrorCategory = "config"

	// Resolution errors: a symbolic name (filter, layout, router, data source)
	// did not resolve to a registered implementation.
	CategoryResolution ErrorCategory = "resolution"

	// Data-source loading errors.
	CategoryDataSource ErrorCategory = "datasource"

	// Errors raised while executing user code snippets.
	CategoryScript ErrorCategory = "script"

	// Errors propagated from a filter implementation.
	CategoryFilter ErrorCategory = "filter"

	// Output writing and other filesystem errors.
	CategoryIO ErrorCategory = "io"

	// Everything that indicates a bug in nanoc itself.
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Aborts the whole run
	SeverityError   ErrorSeverity = "error"   // Aborts the current item rep only
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded behavior
)

// Sentinel causes for the named failure conditions of the compilation core.
// They sit at the bottom of a BuildError chain so callers can use errors.Is.
var (
	ErrUnknownDataSource = errors.New("unknown data source")
	ErrUnknownRouter     = errors.New("unknown router")
	ErrUnknownFilter     = errors.New("unknown filter")
	ErrUnknownLayout     = errors.New("unknown layout")
	ErrBinaryFilter      = errors.New("filter does not support binary content")
)

// ContextFields carries structured context for BuildError.
type ContextFields map[string]any

// BuildError is a structured error with category, severity, and context.
type BuildError struct {
	Category ErrorCategory
	Severity ErrorSeverity
	Message  string
	Cause    error
	Context  ContextFields
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling.
func (e *BuildError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *BuildError) WithContext(key string, value any) *BuildError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new BuildError.
func New(category ErrorCategory, severity ErrorSeverity, message string) *BuildError {
	return &BuildError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new BuildError that wraps an existing error.
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *BuildError {
	return &BuildError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// IsCategory checks if an error belongs to a specific category.
func IsCategory(err error, category ErrorCategory) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or CategoryInternal if the
// error carries no classification.
func GetCategory(err error) ErrorCategory {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Category
	}
	return CategoryInternal
}

// GetSeverity extracts the severity from an error, defaulting to SeverityError.
func GetSeverity(err error) ErrorSeverity {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Severity
	}
	return SeverityError
}
