package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCategory represents the category of error
type ErrorCategory string

const (
	// ErrorCategoryUnavailable represents transient infrastructure errors.
	// An existence check that failed with this category is safe to retry.
	ErrorCategoryUnavailable ErrorCategory = "UNAVAILABLE"
	// ErrorCategoryCycle represents a static defect in the task graph
	ErrorCategoryCycle ErrorCategory = "CYCLE"
	// ErrorCategoryAction represents a failure of an external job or load
	ErrorCategoryAction ErrorCategory = "ACTION"
	// ErrorCategoryConfig represents missing or invalid configuration
	ErrorCategoryConfig ErrorCategory = "CONFIG"
)

// Common error codes
const (
	CodeStoreUnreachable = "001"
	CodeStoreAuth        = "002"

	CodeGraphCycle = "001"

	CodeJobFailed     = "001"
	CodeLoadFailed    = "002"
	CodeDepPropagated = "003"

	CodeConfigParam      = "001"
	CodeConfigCredential = "002"
	CodeConfigFile       = "003"
)

// PipelineError represents a structured error with context and troubleshooting information
type PipelineError struct {
	Category        ErrorCategory
	Code            string
	Message         string
	Operation       string
	Context         map[string]interface{}
	Troubleshooting []string
	CyclePath       []string
	OriginalError   error
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s-%s: %s", e.Category, e.Code, e.Message))

	if e.Operation != "" {
		sb.WriteString(fmt.Sprintf("\nOperation: %s", e.Operation))
	}

	if len(e.CyclePath) > 0 {
		sb.WriteString(fmt.Sprintf("\nCycle: %s", strings.Join(e.CyclePath, " -> ")))
	}

	if len(e.Context) > 0 {
		sb.WriteString("\nContext:")
		for key, value := range e.Context {
			sb.WriteString(fmt.Sprintf("\n  %s: %v", key, value))
		}
	}

	if len(e.Troubleshooting) > 0 {
		sb.WriteString("\nTroubleshooting:")
		for i, step := range e.Troubleshooting {
			sb.WriteString(fmt.Sprintf("\n  %d. %s", i+1, step))
		}
	}

	if e.OriginalError != nil {
		sb.WriteString(fmt.Sprintf("\nUnderlying error: %v", e.OriginalError))
	}

	return sb.String()
}

// Unwrap returns the original error for error chain compatibility
func (e *PipelineError) Unwrap() error {
	return e.OriginalError
}

// NewPipelineError creates a new pipeline error with the specified parameters
func NewPipelineError(category ErrorCategory, code, message, operation string) *PipelineError {
	return &PipelineError{
		Category:        category,
		Code:            code,
		Message:         message,
		Operation:       operation,
		Context:         make(map[string]interface{}),
		Troubleshooting: []string{},
	}
}

// WithContext adds context information to the error
func (e *PipelineError) WithContext(key string, value interface{}) *PipelineError {
	e.Context[key] = value
	return e
}

// WithTroubleshooting adds troubleshooting steps to the error
func (e *PipelineError) WithTroubleshooting(steps ...string) *PipelineError {
	e.Troubleshooting = append(e.Troubleshooting, steps...)
	return e
}

// WithOriginalError adds the original error to the pipeline error
func (e *PipelineError) WithOriginalError(err error) *PipelineError {
	e.OriginalError = err
	return e
}

// WithCyclePath records the chain of task identities forming a cycle
func (e *PipelineError) WithCyclePath(path []string) *PipelineError {
	e.CyclePath = path
	return e
}

// IsCategory reports whether err (or anything it wraps) is a PipelineError
// of the given category.
func IsCategory(err error, category ErrorCategory) bool {
	var perr *PipelineError
	if errors.As(err, &perr) {
		return perr.Category == category
	}
	return false
}

// CyclePath extracts the cycle path from a cycle error, or nil.
func CyclePath(err error) []string {
	var perr *PipelineError
	if errors.As(err, &perr) && perr.Category == ErrorCategoryCycle {
		return perr.CyclePath
	}
	return nil
}
