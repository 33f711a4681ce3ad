// Package jobs holds the external collaborators that perform the pipeline's
// side effects: script job submission and cluster lifecycle. The engine core
// only sees the interfaces; all polling and resource management lives here.
package jobs

import "context"

// ScriptJob describes one external script invocation
type ScriptJob struct {
	// Script is the script file name, resolved against the configured
	// scripts base path
	Script string

	// Parameters is the named parameter mapping passed to the script
	Parameters map[string]string

	// SuccessMarkers lists marker locations the runner writes after the
	// job completes successfully. Marker writes belong to the runner,
	// not the engine core.
	SuccessMarkers []string
}

// Runner submits a script job and blocks until it succeeds or fails.
// Implementations own submission, polling and timeouts; jobs are expected to
// be idempotent so a crashed pipeline run can safely resubmit.
type Runner interface {
	Run(ctx context.Context, job ScriptJob) error
}

// ClusterManager tears down compute clusters left behind by script jobs
type ClusterManager interface {
	// ShutdownIdle deletes the project's active clusters that are not
	// currently running jobs
	ShutdownIdle(ctx context.Context) error
}

// MarkerWriter records a completion marker in the durable marker store
type MarkerWriter interface {
	WriteMarker(ctx context.Context, location string) error
}
