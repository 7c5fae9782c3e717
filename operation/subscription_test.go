package operation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectorlog/client-go/corrid"
	"github.com/vectorlog/client-go/operation"
	"github.com/vectorlog/client-go/wire"
)

func TestSubscriptionSurvivesConnectionLostAndReplaysOnConnected(t *testing.T) {
	client := wire.StringHandle("alice")
	pkg := wire.PackageOut{Message: wire.Ping{}, CorrelationID: corrid.New()}
	sub := operation.NewSubscription(pkg, client, noopDeliver)

	next, ok := sub.ConnectionLost()
	require.True(t, ok)
	assert.Equal(t, sub, next)

	var resent wire.PackageOut
	_, ok = sub.Connected(func(p wire.PackageOut) error {
		resent = p
		return nil
	})
	require.True(t, ok)
	assert.Equal(t, pkg.CorrelationID, resent.CorrelationID)
}

func TestSubscriptionClaimsUnsubscribeAndTerminates(t *testing.T) {
	client := wire.StringHandle("alice")
	pkg := wire.PackageOut{Message: wire.Ping{}, CorrelationID: corrid.New()}
	sub := operation.NewSubscription(pkg, client, noopDeliver)

	assert.True(t, sub.ClaimsOutgoing(wire.Unsubscribe{}))
	assert.False(t, sub.ClaimsOutgoing(wire.Ping{}))

	next, ok := sub.ApplyOutgoing(wire.Unsubscribe{})
	assert.False(t, ok)
	assert.Nil(t, next)
}

func TestSubscriptionClientTerminatedSendsFarewell(t *testing.T) {
	client := wire.StringHandle("alice")
	pkg := wire.PackageOut{Message: wire.Ping{}, CorrelationID: corrid.New()}
	sub := operation.NewSubscription(pkg, client, noopDeliver)

	farewell, ok := sub.ClientTerminated()
	require.True(t, ok)
	assert.Equal(t, wire.KindUnsubscribe, farewell.Message.Kind())
	assert.Equal(t, sub.ID(), farewell.CorrelationID)
}

func TestSubscriptionInspectInForwardsAndStaysAlive(t *testing.T) {
	client := wire.StringHandle("alice")
	pkg := wire.PackageOut{Message: wire.Ping{}, CorrelationID: corrid.New()}

	var delivered operation.Delivery
	sub := operation.NewSubscription(pkg, client, func(_ wire.ClientHandle, d operation.Delivery) {
		delivered = d
	})

	next, ok := sub.InspectIn(wire.SubscribeCompleted{})
	assert.True(t, ok)
	assert.Equal(t, sub, next)
	assert.Equal(t, wire.KindSubscribeCompleted, delivered.Message.Kind())
}
