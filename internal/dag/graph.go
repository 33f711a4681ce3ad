package dag

import (
	"fmt"
	"sync"

	"github.com/autom8ter/dagger"
)

const (
	DefaultNodeType = "task"
	DefaultEdgeType = "dependency"
)

// Graph is the deduplicated, acyclic set of tasks reachable from a root,
// with a stable topological order (dependencies strictly before dependents).
// Graphs are produced by Build and read-only afterwards.
type Graph struct {
	graph *dagger.Graph
	tasks map[Identity]Task
	order []Identity
	root  Identity
	mutex sync.RWMutex
}

func newGraph() *Graph {
	return &Graph{
		graph: dagger.NewGraph(),
		tasks: make(map[Identity]Task),
	}
}

// addTask adds a task node keyed by its identity
func (g *Graph) addTask(id Identity, task Task) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, exists := g.tasks[id]; exists {
		return fmt.Errorf("task %s already in graph", id)
	}

	path := dagger.Path{XID: string(id), XType: DefaultNodeType}
	attributes := dagger.Attributes{"task": task}
	g.graph.SetNode(path, attributes)

	g.tasks[id] = task
	return nil
}

// addDependency records that `to` depends on `from` (from runs first)
func (g *Graph) addDependency(fromID, toID Identity) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, exists := g.tasks[fromID]; !exists {
		return fmt.Errorf("dependency task %s does not exist", fromID)
	}
	if _, exists := g.tasks[toID]; !exists {
		return fmt.Errorf("dependent task %s does not exist", toID)
	}

	fromPath := dagger.Path{XID: string(fromID), XType: DefaultNodeType}
	toPath := dagger.Path{XID: string(toID), XType: DefaultNodeType}
	edgeNode := dagger.Node{
		Path:       dagger.Path{XType: DefaultEdgeType},
		Attributes: dagger.Attributes{"type": "dependency"},
	}

	if _, err := g.graph.SetEdge(fromPath, toPath, edgeNode); err != nil {
		return fmt.Errorf("failed to add dependency from %s to %s: %w", fromID, toID, err)
	}
	return nil
}

// Task retrieves a task by its identity
func (g *Graph) Task(id Identity) (Task, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	task, exists := g.tasks[id]
	if !exists {
		return nil, fmt.Errorf("task %s not found", id)
	}
	return task, nil
}

// Dependencies returns the identities that must complete before the given task
func (g *Graph) Dependencies(id Identity) []Identity {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	var deps []Identity
	nodePath := dagger.Path{XID: string(id), XType: DefaultNodeType}
	g.graph.RangeEdgesTo(DefaultEdgeType, nodePath, func(e dagger.Edge) bool {
		deps = append(deps, Identity(e.From.XID))
		return true
	})
	return deps
}

// Dependents returns the identities that depend on the given task
func (g *Graph) Dependents(id Identity) []Identity {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	var dependents []Identity
	nodePath := dagger.Path{XID: string(id), XType: DefaultNodeType}
	g.graph.RangeEdgesFrom(DefaultEdgeType, nodePath, func(e dagger.Edge) bool {
		dependents = append(dependents, Identity(e.To.XID))
		return true
	})
	return dependents
}

// Order returns the topological order, dependencies first. The order is
// deterministic: ties are broken by first discovery during the build walk,
// which follows declaration order.
func (g *Graph) Order() []Identity {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	order := make([]Identity, len(g.order))
	copy(order, g.order)
	return order
}

// Root returns the identity of the root task
func (g *Graph) Root() Identity {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.root
}

// Size returns the number of tasks in the graph
func (g *Graph) Size() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.tasks)
}

// Close releases the backing graph store
func (g *Graph) Close() {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.graph != nil {
		g.graph.Close()
	}
}
