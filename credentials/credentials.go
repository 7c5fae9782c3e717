// Package credentials provides the concrete credential structures the
// connection core carries opaquely on outbound packages. The core
// (package connmgr) only ever calls Scheme and Bytes; it never
// inspects or validates a credential's contents.
package credentials

// Credentials is attached to a PackageOut and replayed verbatim by the
// pipeline's codec. The core treats it as opaque.
type Credentials interface {
	// Scheme identifies the credential kind on the wire, e.g. "basic"
	// or "bearer".
	Scheme() string
	// Bytes renders the credential payload for the frame header.
	Bytes() []byte
}

// Basic is a username/password pair, sent as-is. It is the simplest
// credential a server can require and the default for local/test
// deployments.
type Basic struct {
	Username string
	Password string
}

func (b Basic) Scheme() string { return "basic" }

func (b Basic) Bytes() []byte {
	return []byte(b.Username + "\x00" + b.Password)
}
