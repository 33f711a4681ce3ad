package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/warebox/conveyor/internal/errors"
)

func TestBuildLinearChain(t *testing.T) {
	store := newMemStore()
	extract := newFakeTask(store, "extract", nil)
	transform := newFakeTask(store, "transform", nil, extract)
	load := newFakeTask(store, "load", nil, transform)
	shutdown := newFakeTask(store, "shutdown", nil, load)

	graph, err := Build(shutdown)
	require.NoError(t, err)
	defer graph.Close()

	assert.Equal(t, 4, graph.Size())
	assert.Equal(t, IdentityOf(shutdown), graph.Root())
	assert.Equal(t, []Identity{
		IdentityOf(extract),
		IdentityOf(transform),
		IdentityOf(load),
		IdentityOf(shutdown),
	}, graph.Order())
}

func TestBuildDiamondProducesOneNode(t *testing.T) {
	store := newMemStore()
	d := newFakeTask(store, "d", nil)
	b := newFakeTask(store, "b", nil, d)
	c := newFakeTask(store, "c", nil, d)
	a := newFakeTask(store, "a", nil, b, c)

	graph, err := Build(a)
	require.NoError(t, err)
	defer graph.Close()

	assert.Equal(t, 4, graph.Size())
	assert.ElementsMatch(t, []Identity{IdentityOf(b), IdentityOf(c)}, graph.Dependents(IdentityOf(d)))
}

func TestBuildCollapsesEqualIdentities(t *testing.T) {
	// Two distinct values with the same name and parameters are one node.
	store := newMemStore()
	dep1 := newFakeTask(store, "extract", map[string]string{"input": "gs://in"})
	dep2 := newFakeTask(store, "extract", map[string]string{"input": "gs://in"})
	b := newFakeTask(store, "b", nil, dep1)
	c := newFakeTask(store, "c", nil, dep2)
	root := newFakeTask(store, "root", nil, b, c)

	graph, err := Build(root)
	require.NoError(t, err)
	defer graph.Close()

	assert.Equal(t, 4, graph.Size())
}

func TestBuildDeterministicOrderFollowsDeclaration(t *testing.T) {
	for i := 0; i < 10; i++ {
		store := newMemStore()
		first := newFakeTask(store, "first", nil)
		second := newFakeTask(store, "second", nil)
		third := newFakeTask(store, "third", nil)
		root := newFakeTask(store, "root", nil, first, second, third)

		graph, err := Build(root)
		require.NoError(t, err)

		assert.Equal(t, []Identity{
			IdentityOf(first),
			IdentityOf(second),
			IdentityOf(third),
			IdentityOf(root),
		}, graph.Order())
		graph.Close()
	}
}

func TestBuildDetectsCycle(t *testing.T) {
	store := newMemStore()
	a := newFakeTask(store, "a", nil)
	b := newFakeTask(store, "b", nil, a)
	a.deps = []Task{b}

	graph, err := Build(a)
	require.Error(t, err)
	assert.Nil(t, graph)
	assert.True(t, perrors.IsCategory(err, perrors.ErrorCategoryCycle))
	assert.Equal(t, []string{"a()", "b()", "a()"}, perrors.CyclePath(err))
}

func TestBuildSelfCycle(t *testing.T) {
	store := newMemStore()
	a := newFakeTask(store, "a", nil)
	a.deps = []Task{a}

	_, err := Build(a)
	require.Error(t, err)
	assert.Equal(t, []string{"a()", "a()"}, perrors.CyclePath(err))
}
