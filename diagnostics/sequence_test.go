package diagnostics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectorlog/client-go/diagnostics"
)

func TestSequenceNextIsMonotonic(t *testing.T) {
	store, ctx := openTestStore(t)
	cache := diagnostics.NewSequenceCache(store)
	instanceID := "test-instance-seq"
	t.Cleanup(func() { cache.Reset(ctx, instanceID) })
	require.NoError(t, cache.Reset(ctx, instanceID))

	first, err := cache.Next(ctx, instanceID)
	require.NoError(t, err)
	second, err := cache.Next(ctx, instanceID)
	require.NoError(t, err)

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)

	current, err := cache.Current(ctx, instanceID)
	require.NoError(t, err)
	assert.Equal(t, second, current)
}

func TestSequenceCurrentWithNoPriorNextIsZero(t *testing.T) {
	store, ctx := openTestStore(t)
	cache := diagnostics.NewSequenceCache(store)
	instanceID := "test-instance-seq-unused"
	t.Cleanup(func() { cache.Reset(ctx, instanceID) })

	current, err := cache.Current(ctx, instanceID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), current)
}
