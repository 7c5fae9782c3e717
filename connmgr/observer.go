package connmgr

import "time"

// Observer is an optional, purely side-channel hook the manager calls
// out to as it moves through its lifecycle. It never influences a
// decision the manager makes — dropping it entirely changes no
// behavior — which keeps diagnostics (Redis-backed or otherwise)
// firmly outside the request/reconnect critical path. NopObserver
// satisfies it with no-ops; package diagnostics provides a
// Redis-backed one.
type Observer interface {
	Connecting(address string)
	Connected(address string)
	ConnectFailed(address string, err error)
	Reconnecting(attempt int, delay time.Duration)
	HeartbeatTimeout(address string)
	Terminated(reason string)
}

// NopObserver discards every event. It is the default when a Manager
// is constructed without one.
type NopObserver struct{}

func (NopObserver) Connecting(string)               {}
func (NopObserver) Connected(string)                {}
func (NopObserver) ConnectFailed(string, error)     {}
func (NopObserver) Reconnecting(int, time.Duration) {}
func (NopObserver) HeartbeatTimeout(string)         {}
func (NopObserver) Terminated(string)               {}
