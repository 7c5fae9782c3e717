package operation

import (
	"github.com/vectorlog/client-go/corrid"
	"github.com/vectorlog/client-go/wire"
)

// Subscription is a persistent Operation: once started it stays in
// the table across a reconnect, reissuing its initial subscribe
// package via Connected, and every inbound message is forwarded to
// the client rather than ending the operation. Its own client may
// later submit an Unsubscribe, which Subscription claims via
// ClaimsOutgoing rather than letting the manager spawn a second
// operation for it.
type Subscription struct {
	id      corrid.ID
	client  wire.ClientHandle
	initial wire.PackageOut
	deliver Deliverer
}

// NewSubscription constructs a pending subscription for pkg.
func NewSubscription(pkg wire.PackageOut, client wire.ClientHandle, deliver Deliverer) *Subscription {
	return &Subscription{id: pkg.CorrelationID, client: client, initial: pkg, deliver: deliver}
}

func (s *Subscription) ID() corrid.ID             { return s.id }
func (s *Subscription) Client() wire.ClientHandle { return s.client }

func (s *Subscription) InspectIn(msg wire.Message) (Operation, bool) {
	s.deliver(s.client, Delivery{Message: msg})
	return s, true
}

func (s *Subscription) ClaimsOutgoing(msg wire.Message) bool {
	_, ok := msg.(wire.Unsubscribe)
	return ok
}

func (s *Subscription) ApplyOutgoing(msg wire.Message) (Operation, bool) {
	if _, ok := msg.(wire.Unsubscribe); ok {
		return nil, false
	}
	return s, true
}

func (s *Subscription) Connected(send Sender) (Operation, bool) {
	if err := send(s.initial); err != nil {
		s.deliver(s.client, Delivery{Failure: err})
		return nil, false
	}
	return s, true
}

// ConnectionLost retains the subscription for replay on the next
// Connected, matching the reconnect-replay scenario: the client is
// never told ConnectionLost for a subscription that comes back.
func (s *Subscription) ConnectionLost() (Operation, bool) {
	return s, true
}

// ClientTerminated sends a farewell Unsubscribe on the same
// correlation id before the operation is dropped.
func (s *Subscription) ClientTerminated() (wire.PackageOut, bool) {
	return wire.PackageOut{
		Message:       wire.Unsubscribe{},
		CorrelationID: s.id,
	}, true
}
