// Package warehouse holds the bulk-load collaborator: high-throughput
// ingestion from object storage into a warehouse table.
package warehouse

import "context"

// Column describes one destination table column
type Column struct {
	Name string
	Type string
}

// Loader performs bulk loads and answers table existence, which backs the
// copy task's completion check.
type Loader interface {
	// TableExists reports whether the destination table is present.
	// An unreachable warehouse is an error, distinct from (false, nil).
	TableExists(ctx context.Context, table string) (bool, error)

	// CopyFrom bulk-copies every object under sourceURI into the table,
	// creating it with the given schema when needed
	CopyFrom(ctx context.Context, sourceURI, table string, columns []Column) error
}
