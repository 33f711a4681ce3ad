package target

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/warebox/conveyor/internal/errors"
)

// countingTarget records how many times Exists hits the backing store
type countingTarget struct {
	location string
	exists   bool
	err      error
	calls    atomic.Int32
}

func (t *countingTarget) Location() string {
	return t.location
}

func (t *countingTarget) Exists(ctx context.Context) (bool, error) {
	t.calls.Add(1)
	if t.err != nil {
		return false, t.err
	}
	return t.exists, nil
}

func TestCacheChecksEachLocationOnce(t *testing.T) {
	cache := NewCache()
	tgt := &countingTarget{location: "gs://bucket/wiki/extract", exists: true}

	for i := 0; i < 5; i++ {
		exists, err := cache.Exists(context.Background(), tgt)
		require.NoError(t, err)
		assert.True(t, exists)
	}

	assert.Equal(t, int32(1), tgt.calls.Load())
	assert.Equal(t, 1, cache.Size())
}

func TestCacheDoesNotMemoizeErrors(t *testing.T) {
	cache := NewCache()
	tgt := &countingTarget{
		location: "gs://bucket/wiki/transform",
		err:      perrors.NewUnavailableError("gs://bucket/wiki/transform", "existence check", errors.New("dial tcp: timeout")),
	}

	_, err := cache.Exists(context.Background(), tgt)
	require.Error(t, err)
	assert.True(t, perrors.IsCategory(err, perrors.ErrorCategoryUnavailable))

	// The store recovers; the next check must hit it again.
	tgt.err = nil
	tgt.exists = true

	exists, err := cache.Exists(context.Background(), tgt)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, int32(2), tgt.calls.Load())
}

func TestCacheSingleWriterPerLocation(t *testing.T) {
	cache := NewCache()
	tgt := &countingTarget{location: "gs://bucket/wiki/extract", exists: false}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			exists, err := cache.Exists(context.Background(), tgt)
			assert.NoError(t, err)
			assert.False(t, exists)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), tgt.calls.Load())
}

func TestCacheDistinctLocations(t *testing.T) {
	cache := NewCache()
	a := &countingTarget{location: "a", exists: true}
	b := &countingTarget{location: "b", exists: false}

	existsA, err := cache.Exists(context.Background(), a)
	require.NoError(t, err)
	existsB, err := cache.Exists(context.Background(), b)
	require.NoError(t, err)

	assert.True(t, existsA)
	assert.False(t, existsB)
	assert.Equal(t, 2, cache.Size())
}
