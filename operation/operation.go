/*
Package operation defines the per-request sub-state-machine contract
the connection core drives, the indexed table that holds every live
Operation, and two concrete variants: OneShot (request/response) and
Subscription. Other variants can be supplied from outside this package
through the manager's Factory.

The partial-function shape of inspectOut is represented Go-style as a
predicate plus a transform, the way a single capability interface
would otherwise force every Operation implementation to answer
"am I defined here" and "what do I become" in one call.
*/
package operation

import (
	"github.com/vectorlog/client-go/corrid"
	"github.com/vectorlog/client-go/wire"
)

// Sender transmits a package through the live pipeline. Operation
// implementations call it from Connected to replay state on a fresh
// session.
type Sender func(wire.PackageOut) error

// Delivery is what an Operation hands back to its owning client: a
// decoded message on success, or a structured failure (including
// ErrConnectionLost) on error.
type Delivery struct {
	Message wire.Message
	Failure error
}

// Deliverer routes a Delivery to the client that owns an Operation.
type Deliverer func(wire.ClientHandle, Delivery)

// Operation is the contract the ConnectionManager depends on. Every
// method that can end the operation's life returns (next, ok); ok
// false means the operation is terminal and must be removed from the
// table.
type Operation interface {
	ID() corrid.ID
	Client() wire.ClientHandle

	// InspectIn consumes an inbound message addressed to this
	// operation by correlation id.
	InspectIn(msg wire.Message) (Operation, bool)

	// ClaimsOutgoing reports whether this operation wants to absorb a
	// follow-up outbound message from its own client, such as a live
	// subscription claiming its Unsubscribe.
	ClaimsOutgoing(msg wire.Message) bool

	// ApplyOutgoing transforms the operation in response to a claimed
	// outbound message. Only called when ClaimsOutgoing returned true
	// for the same message.
	ApplyOutgoing(msg wire.Message) (Operation, bool)

	// Connected is invoked once per (re)connect to replay or
	// initialize the operation's state on the wire.
	Connected(send Sender) (Operation, bool)

	// ConnectionLost is invoked when the session drops. ok false means
	// drop and fail the client with ErrConnectionLost.
	ConnectionLost() (Operation, bool)

	// ClientTerminated is invoked when the originating client dies. A
	// true return carries an optional farewell package to transmit
	// before the operation is removed.
	ClientTerminated() (wire.PackageOut, bool)
}
