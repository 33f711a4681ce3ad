package dag

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warebox/conveyor/internal/target"
)

// memStore is an in-memory marker store shared by fake targets
type memStore struct {
	mu      sync.Mutex
	markers map[string]bool
	flaky   map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		markers: make(map[string]bool),
		flaky:   make(map[string]error),
	}
}

func (s *memStore) write(location string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[location] = true
}

func (s *memStore) setUnavailable(location string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flaky[location] = err
}

func (s *memStore) target(location string) target.Target {
	return &memTarget{store: s, location: location}
}

type memTarget struct {
	store    *memStore
	location string
}

func (t *memTarget) Location() string {
	return t.location
}

func (t *memTarget) Exists(ctx context.Context) (bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if err := t.store.flaky[t.location]; err != nil {
		return false, err
	}
	return t.store.markers[t.location], nil
}

// fakeTask is a controllable task that records its invocations
type fakeTask struct {
	*BaseTask
	deps     []Task
	outs     []target.Target
	store    *memStore
	failWith error
	onRun    func(name string)
	runs     atomic.Int32
}

func newFakeTask(store *memStore, name string, params map[string]string, deps ...Task) *fakeTask {
	t := &fakeTask{
		BaseTask: NewBaseTask(name, params),
		deps:     deps,
		store:    store,
	}
	t.outs = []target.Target{store.target(name + ".marker")}
	return t
}

func (t *fakeTask) Requires() []Task {
	return t.deps
}

func (t *fakeTask) Outputs() []target.Target {
	return t.outs
}

func (t *fakeTask) Complete(ctx context.Context, cache *target.Cache) (bool, error) {
	return OutputsExist(ctx, t, cache)
}

func (t *fakeTask) Run(ctx context.Context) error {
	t.runs.Add(1)
	if t.onRun != nil {
		t.onRun(t.Name())
	}
	if t.failWith != nil {
		return t.failWith
	}
	// The external collaborator writes markers on success; the fake plays
	// both roles.
	for _, out := range t.outs {
		t.store.write(out.Location())
	}
	return nil
}

func (t *fakeTask) RunCount() int {
	return int(t.runs.Load())
}

func TestIdentityIsStructural(t *testing.T) {
	store := newMemStore()
	a := newFakeTask(store, "extract", map[string]string{"input": "gs://in", "output": "gs://out"})
	b := newFakeTask(store, "extract", map[string]string{"output": "gs://out", "input": "gs://in"})
	c := newFakeTask(store, "extract", map[string]string{"input": "gs://elsewhere", "output": "gs://out"})

	assert.Equal(t, IdentityOf(a), IdentityOf(b))
	assert.NotEqual(t, IdentityOf(a), IdentityOf(c))
	assert.Equal(t, Identity("extract(input=gs://in, output=gs://out)"), IdentityOf(a))
}

func TestIdentityEscapesSeparators(t *testing.T) {
	store := newMemStore()

	// A value containing the separators must not forge a second parameter.
	forged := newFakeTask(store, "extract", map[string]string{"a": "1, b=2"})
	honest := newFakeTask(store, "extract", map[string]string{"a": "1", "b": "2"})
	assert.NotEqual(t, IdentityOf(honest), IdentityOf(forged))
	assert.Equal(t, Identity(`extract(a=1\, b\=2)`), IdentityOf(forged))

	closing := newFakeTask(store, "extract", map[string]string{"a": "1)"})
	assert.Equal(t, Identity(`extract(a=1\))`), IdentityOf(closing))

	escaped := newFakeTask(store, "extract", map[string]string{"a": `1\, b=2`})
	assert.NotEqual(t, IdentityOf(forged), IdentityOf(escaped))
}

func TestIdentityWithoutParameters(t *testing.T) {
	store := newMemStore()
	task := newFakeTask(store, "shutdown_clusters", nil)
	assert.Equal(t, Identity("shutdown_clusters()"), IdentityOf(task))
}

func TestOutputsExistDefaultPolicy(t *testing.T) {
	store := newMemStore()
	task := newFakeTask(store, "extract", nil)
	cache := target.NewCache()

	complete, err := OutputsExist(context.Background(), task, cache)
	require.NoError(t, err)
	assert.False(t, complete)

	store.write("extract.marker")

	// Fresh cache: the first run memoized the absent marker.
	complete, err = OutputsExist(context.Background(), task, target.NewCache())
	require.NoError(t, err)
	assert.True(t, complete)
}

func TestTaskWithoutOutputsIsNeverComplete(t *testing.T) {
	store := newMemStore()
	task := newFakeTask(store, "copy", nil)
	task.outs = nil

	complete, err := OutputsExist(context.Background(), task, target.NewCache())
	require.NoError(t, err)
	assert.False(t, complete)
}

func TestOutputsExistSurfacesUnavailable(t *testing.T) {
	store := newMemStore()
	task := newFakeTask(store, "extract", nil)
	store.setUnavailable("extract.marker", errors.New("storage unreachable"))

	_, err := OutputsExist(context.Background(), task, target.NewCache())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage unreachable")
}

func TestBaseTaskDefaults(t *testing.T) {
	base := NewBaseTask("transform", map[string]string{"cluster_size": "5"})
	assert.Equal(t, "transform", base.Name())
	assert.Equal(t, map[string]string{"cluster_size": "5"}, base.Parameters())
	assert.Empty(t, base.Requires())
	assert.Empty(t, base.Outputs())
	assert.Equal(t, "5", base.Parameters()["cluster_size"])
	assert.Equal(t, "transform(cluster_size=5)", string(IdentityOf(&plainTask{base})))
}

// plainTask lifts a BaseTask into a full Task for identity tests
type plainTask struct {
	*BaseTask
}

func (t *plainTask) Complete(ctx context.Context, cache *target.Cache) (bool, error) {
	return OutputsExist(ctx, t, cache)
}

func (t *plainTask) Run(ctx context.Context) error {
	return nil
}
