package dag

import "time"

// Status represents the execution state of a task within one run
type Status int

const (
	// StatusPending indicates the task has not reached a terminal state
	StatusPending Status = iota
	// StatusSkipped indicates the task was already complete and never ran
	StatusSkipped
	// StatusRunning indicates the task is currently executing
	StatusRunning
	// StatusSucceeded indicates the task's action completed successfully
	StatusSucceeded
	// StatusFailed indicates the task's action failed, or a dependency did
	StatusFailed
)

// String returns a string representation of the Status
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSkipped:
		return "skipped"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible
func (s Status) Terminal() bool {
	return s == StatusSkipped || s == StatusSucceeded || s == StatusFailed
}

// TaskResult contains the outcome of a single task
type TaskResult struct {
	// ID is the identity of the task
	ID Identity

	// Status is the terminal (or last observed) state
	Status Status

	// Error is the failure cause, when Status is StatusFailed
	Error error

	// StartTime is when the task was dispatched
	StartTime *time.Time

	// EndTime is when the task reached a terminal state
	EndTime *time.Time

	// Duration is how long the task took
	Duration time.Duration
}

// ExecutionResult contains the results of one executor run
type ExecutionResult struct {
	// RunID uniquely identifies this run in logs
	RunID string

	// Success indicates the root task ended Succeeded or Skipped
	Success bool

	// Results maps task identities to their outcomes
	Results map[Identity]*TaskResult

	// ExecutionTime is the total time taken for the run
	ExecutionTime time.Duration

	// Error is the first failure in dependency order: the deepest point
	// of failure, not a downstream cascade
	Error error

	// FailureChain lists task identities from the root to the first
	// failure, for reporting. Empty on success.
	FailureChain []Identity
}
