package retry_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectorlog/client-go/retry"
)

func TestZeroBudgetYieldsNoneImmediately(t *testing.T) {
	s := retry.New(0, time.Second, time.Minute)
	_, _, ok := s.Next()
	assert.False(t, ok)
}

func TestDelayDoublesAndClampsAtMax(t *testing.T) {
	s := retry.New(5, time.Second, 4*time.Second)

	d1, s, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, time.Second, d1)

	d2, s, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, d2)

	d3, s, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, 4*time.Second, d3)

	d4, _, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, 4*time.Second, d4, "clamped at max, not 8s")
}

func TestExhaustsAfterMaxReconnections(t *testing.T) {
	s := retry.New(2, time.Second, time.Minute)

	_, s, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, 1, s.Remaining())

	_, s, ok = s.Next()
	require.True(t, ok)
	assert.Equal(t, 0, s.Remaining())

	_, _, ok = s.Next()
	assert.False(t, ok)
}
