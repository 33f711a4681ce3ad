package dag

import (
	"fmt"

	perrors "github.com/warebox/conveyor/internal/errors"
	"github.com/warebox/conveyor/internal/logger"
)

// Build resolves a root task into its full dependency graph by walking
// Requires() depth-first. Nodes are deduplicated by identity, so a diamond
// dependency is built once. A task identity reappearing on the traversal
// stack is a cycle and aborts construction before anything executes.
func Build(root Task) (*Graph, error) {
	g := newGraph()

	stack := make([]Identity, 0, 8)
	onStack := make(map[Identity]bool)

	var visit func(t Task) (Identity, error)
	visit = func(t Task) (Identity, error) {
		id := IdentityOf(t)

		if onStack[id] {
			return id, cycleError(stack, id)
		}
		if _, seen := g.tasks[id]; seen {
			// Already-built subgraph, reuse the node.
			return id, nil
		}

		if err := g.addTask(id, t); err != nil {
			return id, err
		}

		stack = append(stack, id)
		onStack[id] = true

		for _, dep := range t.Requires() {
			depID, err := visit(dep)
			if err != nil {
				return id, err
			}
			if err := g.addDependency(depID, id); err != nil {
				return id, err
			}
		}

		stack = stack[:len(stack)-1]
		onStack[id] = false

		// Postorder append: all dependencies precede their dependent.
		g.order = append(g.order, id)
		return id, nil
	}

	rootID, err := visit(root)
	if err != nil {
		g.Close()
		return nil, err
	}
	g.root = rootID

	logger.Op.WithFields(map[string]interface{}{
		"root":  string(rootID),
		"tasks": g.Size(),
	}).Debug("Built task graph")

	return g, nil
}

func cycleError(stack []Identity, repeated Identity) error {
	start := 0
	for i, id := range stack {
		if id == repeated {
			start = i
			break
		}
	}

	path := make([]string, 0, len(stack)-start+1)
	for _, id := range stack[start:] {
		path = append(path, string(id))
	}
	path = append(path, string(repeated))

	return perrors.NewCycleError(path).
		WithContext("tasks_on_stack", fmt.Sprintf("%d", len(stack)))
}
