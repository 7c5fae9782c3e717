package wire

import (
	"github.com/vectorlog/client-go/corrid"
	"github.com/vectorlog/client-go/credentials"
)

// PackageOut is handed to the pipeline for transmission.
type PackageOut struct {
	Message       Message
	CorrelationID corrid.ID
	Credentials   credentials.Credentials // nil: sent without credentials
}

// PackageIn is produced by the pipeline from an inbound frame. Result
// carries either a decoded Message or a decode/protocol Failure, never
// both.
type PackageIn struct {
	CorrelationID corrid.ID
	Message       Message
	Failure       error
}

// Ok reports whether the package carries a decoded message rather than
// a failure.
func (p PackageIn) Ok() bool { return p.Failure == nil }

// ClientHandle is an opaque reference to a local requester, watched
// for death by the connection core.
type ClientHandle interface {
	// ID distinguishes one client from another for table indexing and
	// logging; it carries no other meaning to the core.
	ID() string
}

// StringHandle is the simplest ClientHandle, sufficient for tests and
// for callers that already have a stable string identity (request id,
// goroutine name, subscription name).
type StringHandle string

func (h StringHandle) ID() string { return string(h) }

// OutLike is the higher-level outbound variant a client submits before
// a correlation id or credentials have been decided. The
// ConnectionManager wraps it into a PackageOut, minting a fresh
// correlation id and filling in default credentials when none are
// given.
type OutLike interface {
	message() Message
	creds() credentials.Credentials
}

// Out wraps a message with no explicit credentials; the manager's
// configured default is used.
type Out struct{ Message Message }

func (o Out) message() Message                { return o.Message }
func (o Out) creds() credentials.Credentials  { return nil }

// WithCredentials wraps a message together with explicit credentials,
// overriding the manager's default for this one package.
type WithCredentials struct {
	Message     Message
	Credentials credentials.Credentials
}

func (w WithCredentials) message() Message               { return w.Message }
func (w WithCredentials) creds() credentials.Credentials { return w.Credentials }

// Resolve extracts the message and an explicit-or-nil credentials pair
// from an OutLike value; callers outside this package (the
// ConnectionManager) use it rather than the unexported interface
// methods.
func Resolve(o OutLike) (Message, credentials.Credentials) {
	return o.message(), o.creds()
}
