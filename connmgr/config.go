package connmgr

import (
	"context"
	"net"
	"time"

	"github.com/vectorlog/client-go/credentials"
)

// Config enumerates every setting the manager consults. It is a plain
// struct rather than a flag-bound type: values are assembled from
// flags one layer up and handed down already parsed, so this package
// has no opinion on where they came from.
type Config struct {
	Address string

	ConnectionTimeout time.Duration

	// MaxReconnections bounds the number of reconnect attempts after
	// the first connect fails. Zero means "never reconnect".
	MaxReconnections     int
	ReconnectionDelayMin time.Duration
	ReconnectionDelayMax time.Duration

	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration

	// DefaultCredentials is attached by Submit to packages whose OutLike
	// carries none, to heartbeat probes and probe replies, and to the
	// defensive Unsubscribe sent against a stray SubscribeCompleted.
	// Packages passed to SubmitPackage, and farewell packages, go out
	// with exactly the credentials they carry.
	DefaultCredentials credentials.Credentials

	// WriteBufferSize tunes the pipeline's outbound channel capacity.
	// Zero uses the pipeline package's own default.
	WriteBufferSize int
}

func (c Config) withDefaults() Config {
	if c.ConnectionTimeout <= 0 {
		c.ConnectionTimeout = 10 * time.Second
	}
	if c.ReconnectionDelayMin <= 0 {
		c.ReconnectionDelayMin = 500 * time.Millisecond
	}
	if c.ReconnectionDelayMax <= 0 {
		c.ReconnectionDelayMax = 30 * time.Second
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = 10 * time.Second
	}
	return c
}

// Dialer opens the single TCP session the manager maintains. The
// default dials with net.Dialer honoring ctx's deadline; tests
// substitute an in-memory dialer.
type Dialer func(ctx context.Context, address string) (net.Conn, error)

func defaultDialer(ctx context.Context, address string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", address)
}
