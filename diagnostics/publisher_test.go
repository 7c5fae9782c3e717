package diagnostics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectorlog/client-go/connmgr"
	"github.com/vectorlog/client-go/diagnostics"
)

// Publisher must satisfy connmgr.Observer by structure alone.
var _ connmgr.Observer = (*diagnostics.Publisher)(nil)

func TestPublisherBuffersEveryLifecycleCallback(t *testing.T) {
	store, ctx := openTestStore(t)
	instanceID := "test-instance-publisher"
	pub := diagnostics.NewPublisher(instanceID, store, nil)
	buffer := diagnostics.NewEventBuffer(store, 0, 0)
	t.Cleanup(func() { buffer.Clear(ctx, instanceID) })
	require.NoError(t, buffer.Clear(ctx, instanceID))

	pub.Connecting("event-store:1113")
	pub.Connected("event-store:1113")
	pub.Reconnecting(1, 500*time.Millisecond)
	pub.HeartbeatTimeout("event-store:1113")
	pub.ConnectFailed("event-store:1113", errors.New("refused"))
	pub.Terminated("budget exhausted")

	backlog, err := pub.Backlog(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, backlog, 6)

	kinds := make([]diagnostics.EventKind, len(backlog))
	for i, ev := range backlog {
		kinds[i] = ev.Kind
		assert.Equal(t, instanceID, ev.InstanceID)
	}
	assert.Equal(t, []diagnostics.EventKind{
		diagnostics.EventConnecting,
		diagnostics.EventConnected,
		diagnostics.EventReconnecting,
		diagnostics.EventHeartbeatTimeout,
		diagnostics.EventConnectFailed,
		diagnostics.EventTerminated,
	}, kinds)
}
