// Package wire defines the message-level units that cross the
// pipeline boundary (PackageIn/PackageOut), the small set of
// connection-level control messages the core must recognize by name,
// and the client-facing OutLike convenience wrapper.
//
// Message bodies for application-level commands are deliberately left
// as an opaque Message interface: individual command serialization is
// an external collaborator, supplied by the codec the caller
// configures the pipeline with. wire only gives bodies to the handful
// of control messages the ConnectionManager itself inspects.
package wire

// Kind identifies a Message's wire type without requiring a type
// switch everywhere the core only cares whether a message is one of
// its own control messages.
type Kind int

const (
	KindUnknown Kind = iota
	KindHeartbeatRequest
	KindHeartbeatResponse
	KindPing
	KindPong
	KindSubscribe
	KindSubscribeCompleted
	KindUnsubscribe
	KindUnsubscribeCompleted
)

// Message is any value that can travel inside a PackageIn/PackageOut.
type Message interface {
	Kind() Kind
}

// HeartbeatRequest is sent by the manager to probe server liveness.
type HeartbeatRequest struct{}

func (HeartbeatRequest) Kind() Kind { return KindHeartbeatRequest }

// HeartbeatResponse answers a HeartbeatRequest, in either direction.
type HeartbeatResponse struct{}

func (HeartbeatResponse) Kind() Kind { return KindHeartbeatResponse }

// Ping is a liveness probe either side may send. The manager answers a
// Ping from the server with Pong on the same correlation id; a Ping a
// client submits is an ordinary one-shot request.
type Ping struct{}

func (Ping) Kind() Kind { return KindPing }

// Pong answers a Ping.
type Pong struct{}

func (Pong) Kind() Kind { return KindPong }

// Subscribe requests a live stream of events from the server; the
// resulting operation stays in the table across reconnects, replaying
// this same message on every new session.
type Subscribe struct{}

func (Subscribe) Kind() Kind { return KindSubscribe }

// SubscribeCompleted confirms a subscription operation reached a
// stable state. Received with an unknown correlation id, it triggers
// a defensive Unsubscribe so a stray confirmation never leaves a
// subscription dangling on the far end.
type SubscribeCompleted struct{}

func (SubscribeCompleted) Kind() Kind { return KindSubscribeCompleted }

// Unsubscribe tears down a live subscription or persistent
// subscription operation.
type Unsubscribe struct{}

func (Unsubscribe) Kind() Kind { return KindUnsubscribe }

// UnsubscribeCompleted confirms an Unsubscribe was processed.
type UnsubscribeCompleted struct{}

func (UnsubscribeCompleted) Kind() Kind { return KindUnsubscribeCompleted }
