package target

import (
	"context"
	"os"

	perrors "github.com/warebox/conveyor/internal/errors"
)

// LocalTarget is a marker backed by a filesystem path. It exists for tests
// and local dry runs; production pipelines use GCS markers.
type LocalTarget struct {
	path string
}

// NewLocalTarget creates a target for a local path
func NewLocalTarget(path string) *LocalTarget {
	return &LocalTarget{path: path}
}

// NewLocalFactory returns a Factory producing local targets
func NewLocalFactory() Factory {
	return func(location string) (Target, error) {
		return NewLocalTarget(location), nil
	}
}

// Location returns the filesystem path
func (t *LocalTarget) Location() string {
	return t.path
}

// Exists reports whether the path is present
func (t *LocalTarget) Exists(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, perrors.NewUnavailableError(t.path, "existence check", err)
	}

	_, err := os.Stat(t.path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, perrors.NewUnavailableError(t.path, "existence check", err)
}
