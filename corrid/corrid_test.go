package corrid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectorlog/client-go/corrid"
)

func TestNewIsUniqueAndNonNil(t *testing.T) {
	a := corrid.New()
	b := corrid.New()

	assert.NotEqual(t, a, b)
	assert.False(t, a.IsNil())
	assert.True(t, corrid.Nil.IsNil())
}

func TestBytesRoundTrip(t *testing.T) {
	id := corrid.New()

	got, err := corrid.FromBytes(id.Bytes())
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestFromBytesRejectsWrongLength(t *testing.T) {
	_, err := corrid.FromBytes([]byte{1, 2, 3})
	assert.ErrorIs(t, err, corrid.ErrInvalidLength)
}

func TestCompactIsStableAndDistinct(t *testing.T) {
	id := corrid.New()

	assert.Len(t, id.Compact(), 32)
	assert.Equal(t, id.Compact(), id.Compact())

	other := corrid.New()
	assert.NotEqual(t, id.Compact(), other.Compact())
}
