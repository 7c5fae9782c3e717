package operation

import (
	"errors"

	"github.com/vectorlog/client-go/corrid"
	"github.com/vectorlog/client-go/wire"
)

// ErrConnectionLost is delivered to a client whose one-shot operation
// was in flight when the session dropped.
var ErrConnectionLost = errors.New("operation: connection lost")

// OneShot is a request/response Operation: it transmits its initial
// message once, delivers exactly one inbound reply to its client, and
// then is terminal. It does not survive a reconnect — a fresh session
// means the in-flight request must be resubmitted by the caller, so
// ConnectionLost always drops it.
type OneShot struct {
	id      corrid.ID
	client  wire.ClientHandle
	initial wire.PackageOut
	deliver Deliverer
	sent    bool
}

// NewOneShot constructs a pending one-shot operation for pkg, not yet
// transmitted. Connected transmits it on the first live session and
// records it as sent.
func NewOneShot(pkg wire.PackageOut, client wire.ClientHandle, deliver Deliverer) *OneShot {
	return &OneShot{id: pkg.CorrelationID, client: client, initial: pkg, deliver: deliver}
}

// MarkSent records that the initial package has reached the wire,
// relevant only to what Connected replays after a reconnect attempt
// that finds this operation already in the table (it should not,
// since OneShot never survives ConnectionLost, but staying honest
// about sent/unsent costs nothing).
func (o *OneShot) MarkSent() { o.sent = true }

func (o *OneShot) ID() corrid.ID             { return o.id }
func (o *OneShot) Client() wire.ClientHandle { return o.client }

func (o *OneShot) InspectIn(msg wire.Message) (Operation, bool) {
	o.deliver(o.client, Delivery{Message: msg})
	return nil, false
}

func (o *OneShot) ClaimsOutgoing(wire.Message) bool { return false }

func (o *OneShot) ApplyOutgoing(wire.Message) (Operation, bool) {
	return o, true
}

func (o *OneShot) Connected(send Sender) (Operation, bool) {
	if !o.sent {
		if err := send(o.initial); err != nil {
			o.deliver(o.client, Delivery{Failure: err})
			return nil, false
		}
		o.sent = true
	}
	return o, true
}

func (o *OneShot) ConnectionLost() (Operation, bool) {
	o.deliver(o.client, Delivery{Failure: ErrConnectionLost})
	return nil, false
}

func (o *OneShot) ClientTerminated() (wire.PackageOut, bool) {
	return wire.PackageOut{}, false
}
