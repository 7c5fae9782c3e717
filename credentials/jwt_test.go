package credentials_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectorlog/client-go/credentials"
)

func TestJWTMintsAndCaches(t *testing.T) {
	j := credentials.NewJWT([]byte("secret"), "client-1", "vectorlog", time.Minute, 10*time.Second)

	base := time.Unix(1_700_000_000, 0)

	first, err := j.AsOf(base)
	require.NoError(t, err)
	assert.Equal(t, "bearer", first.Scheme())
	assert.NotEmpty(t, first.Bytes())

	second, err := j.AsOf(base.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, first.Bytes(), second.Bytes(), "token should be cached within refresh window")
}

func TestJWTRefreshesNearExpiry(t *testing.T) {
	j := credentials.NewJWT([]byte("secret"), "client-1", "vectorlog", time.Minute, 10*time.Second)

	base := time.Unix(1_700_000_000, 0)
	first, err := j.AsOf(base)
	require.NoError(t, err)

	later := base.Add(55 * time.Second)
	second, err := j.AsOf(later)
	require.NoError(t, err)

	assert.NotEqual(t, first.Bytes(), second.Bytes(), "token should be reminted inside the refresh window")
}

func TestBasicCredentials(t *testing.T) {
	b := credentials.Basic{Username: "alice", Password: "hunter2"}
	assert.Equal(t, "basic", b.Scheme())
	assert.Equal(t, []byte("alice\x00hunter2"), b.Bytes())
}
