package diagnostics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectorlog/client-go/diagnostics"
)

func TestPresenceRegisterHeartbeatDeregister(t *testing.T) {
	store, ctx := openTestStore(t)
	presence := diagnostics.NewPresence(store, time.Minute)
	instanceID := "test-instance-presence"
	t.Cleanup(func() { presence.Deregister(ctx, instanceID) })

	require.NoError(t, presence.Register(ctx, instanceID, "event-store:1113", "connected"))

	active, err := presence.IsActive(ctx, instanceID)
	require.NoError(t, err)
	assert.True(t, active)

	require.NoError(t, presence.Heartbeat(ctx, instanceID))

	require.NoError(t, presence.Deregister(ctx, instanceID))
	active, err = presence.IsActive(ctx, instanceID)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestPresenceListActiveIncludesRegistered(t *testing.T) {
	store, ctx := openTestStore(t)
	presence := diagnostics.NewPresence(store, time.Minute)
	instanceID := "test-instance-list"
	t.Cleanup(func() { presence.Deregister(ctx, instanceID) })

	require.NoError(t, presence.Register(ctx, instanceID, "event-store:1113", "connecting"))

	ids, err := presence.ListActive(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, instanceID)
}
