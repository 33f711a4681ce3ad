// Package target provides checkable markers of completed, durable output.
// Tasks declare the targets they produce; the executor queries (never
// mutates) them to decide whether a task can be skipped.
package target

import "context"

// Target identifies a durable artifact backed by a marker store.
type Target interface {
	// Location returns the string identifier of the artifact, e.g. a
	// gs:// URI or a filesystem path.
	Location() string

	// Exists reports whether the artifact is present. The check is
	// idempotent and side-effect free. When the backing store cannot be
	// reached the error is categorized as unavailable, which is distinct
	// from a legitimate (false, nil).
	Exists(ctx context.Context) (bool, error)
}

// Factory builds a Target for a location URI. It lets task construction stay
// independent of the backing store (GCS in production, local paths in tests).
type Factory func(location string) (Target, error)
