package diagnostics_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vectorlog/client-go/diagnostics"
)

// openTestStore connects to a real Redis instance for these tests.
// No fake/in-memory Redis implementation appears anywhere in the
// retrieval pack, so rather than hand-roll one, these tests are
// ordinary integration tests: they skip when REDIS_ADDR isn't set,
// the same opt-in-via-env-var shape go-redis's own test suite uses.
func openTestStore(t *testing.T) (*diagnostics.Store, context.Context) {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping diagnostics integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	store, err := diagnostics.Open(ctx, diagnostics.Config{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, ctx
}
