package errors

import (
	"fmt"
	"strings"
)

// NewUnavailableError creates an error for an unreachable marker store.
// A false existence result is legitimate; this error means the answer is
// unknown because the backing store could not be queried.
func NewUnavailableError(location, operation string, originalErr error) *PipelineError {
	code := CodeStoreUnreachable
	if originalErr != nil {
		errStr := strings.ToLower(originalErr.Error())
		if strings.Contains(errStr, "permission") || strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "forbidden") {
			code = CodeStoreAuth
		}
	}
	return NewPipelineError(ErrorCategoryUnavailable, code,
		fmt.Sprintf("Marker store unreachable for '%s'", location),
		operation).
		WithContext("location", location).
		WithOriginalError(originalErr).
		WithTroubleshooting(
			"Check network connectivity to the storage service",
			"Verify your credentials are valid and not expired",
			"Re-run the pipeline; completed tasks will be skipped",
		)
}

// NewCycleError creates an error for a dependency cycle. The path lists the
// task identities from the first repeated task back to itself.
func NewCycleError(path []string) *PipelineError {
	return NewPipelineError(ErrorCategoryCycle, CodeGraphCycle,
		"Task dependency cycle detected",
		"Graph construction").
		WithCyclePath(path).
		WithTroubleshooting(
			"Inspect the Requires() declarations of the tasks in the cycle",
			"Task identity is name plus parameters; two tasks with equal identity are the same node",
		)
}

// NewActionError creates an error for a failed external action
func NewActionError(taskID string, originalErr error) *PipelineError {
	return NewPipelineError(ErrorCategoryAction, CodeJobFailed,
		fmt.Sprintf("Task '%s' action failed", taskID),
		"Task execution").
		WithContext("task", taskID).
		WithOriginalError(originalErr)
}

// NewLoadError creates an error for a failed warehouse bulk load
func NewLoadError(table string, originalErr error) *PipelineError {
	return NewPipelineError(ErrorCategoryAction, CodeLoadFailed,
		fmt.Sprintf("Bulk load into table '%s' failed", table),
		"Warehouse load").
		WithContext("table", table).
		WithOriginalError(originalErr).
		WithTroubleshooting(
			"Check the load job errors in the warehouse console",
			"Verify the transform output matches the declared column schema",
		)
}

// NewDependencyError creates the propagated failure recorded on a task whose
// dependency failed. The task's own action is never invoked in this case.
func NewDependencyError(taskID, depID string, originalErr error) *PipelineError {
	return NewPipelineError(ErrorCategoryAction, CodeDepPropagated,
		fmt.Sprintf("Task '%s' not run: dependency '%s' failed", taskID, depID),
		"Task scheduling").
		WithContext("task", taskID).
		WithContext("dependency", depID).
		WithOriginalError(originalErr)
}

// NewConfigError creates an error for missing or invalid parameters
func NewConfigError(message string) *PipelineError {
	return NewPipelineError(ErrorCategoryConfig, CodeConfigParam, message, "Configuration validation")
}

// NewConfigFileError creates an error for an unreadable or malformed config file
func NewConfigFileError(path string, originalErr error) *PipelineError {
	return NewPipelineError(ErrorCategoryConfig, CodeConfigFile,
		fmt.Sprintf("Cannot load configuration file '%s'", path),
		"Configuration loading").
		WithContext("path", path).
		WithOriginalError(originalErr)
}
