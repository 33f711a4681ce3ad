package dag

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/warebox/conveyor/internal/target"
)

// Task represents a named, parameterized unit of work in the pipeline
type Task interface {
	// Name returns the type identity of the task
	Name() string

	// Parameters returns the named parameters defining instance identity.
	// Two tasks with the same name and equal parameters are the same node.
	Parameters() map[string]string

	// Requires returns the tasks that must complete before this one
	Requires() []Task

	// Outputs returns the targets this task must produce
	Outputs() []target.Target

	// Complete reports whether the task's work is already done. The
	// default policy is OutputsExist; task variants may override it.
	Complete(ctx context.Context, cache *target.Cache) (bool, error)

	// Run executes the task's action. It must not be called when
	// Complete is already true.
	Run(ctx context.Context) error
}

// Identity is the deduplication key of a task: name plus canonicalized
// parameters. It is structural, not reference-based.
type Identity string

// identityEscaper escapes the separators of the canonical form, so a
// parameter value containing "," or "=" cannot forge another key=value
// boundary and collide with a different parameter map.
var identityEscaper = strings.NewReplacer(
	`\`, `\\`,
	`,`, `\,`,
	`=`, `\=`,
	`)`, `\)`,
)

// IdentityOf computes the identity of a task. Parameters are sorted by key
// so equal parameter maps always canonicalize identically.
func IdentityOf(t Task) Identity {
	params := t.Parameters()
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(t.Name())
	sb.WriteString("(")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("%s=%s", identityEscaper.Replace(k), identityEscaper.Replace(params[k])))
	}
	sb.WriteString(")")
	return Identity(sb.String())
}

// OutputsExist is the default completion policy: all declared outputs exist.
// A task declaring no outputs is never complete and always runs.
func OutputsExist(ctx context.Context, t Task, cache *target.Cache) (bool, error) {
	outputs := t.Outputs()
	if len(outputs) == 0 {
		return false, nil
	}

	for _, out := range outputs {
		exists, err := cache.Exists(ctx, out)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, nil
		}
	}
	return true, nil
}

// BaseTask carries the identity fields shared by all task variants
type BaseTask struct {
	name       string
	parameters map[string]string
}

// NewBaseTask creates a new base task
func NewBaseTask(name string, parameters map[string]string) *BaseTask {
	return &BaseTask{
		name:       name,
		parameters: parameters,
	}
}

// Name returns the type identity of the task
func (t *BaseTask) Name() string {
	return t.name
}

// Parameters returns the named parameters defining instance identity
func (t *BaseTask) Parameters() map[string]string {
	return t.parameters
}

// Requires returns no dependencies unless the variant declares some
func (t *BaseTask) Requires() []Task {
	return nil
}

// Outputs returns no targets unless the variant declares some
func (t *BaseTask) Outputs() []target.Target {
	return nil
}
