/*
Package heartbeat implements the pair of cancellable one-shot timers
the ConnectionManager arms on every successful inbound delivery: one
firing Due after heartbeatInterval of silence, one firing Timeout
after heartbeatInterval+heartbeatTimeout. Both carry the epoch they
were armed in so a manager that has already re-armed (because traffic
arrived, or because it reconnected) can recognize and discard a timer
event left over from a stale epoch.

Built around time.AfterFunc the same way a read-deadline timer bounds
a socket read loop; the pairing and epoch-tagging extend that idiom
from a single passive deadline to a client-driven probe/timeout pair.
*/
package heartbeat

import (
	"sync"
	"time"
)

// Event is delivered to the manager's event loop when either timer
// fires.
type Event struct {
	Epoch   uint64
	Timeout bool // false: Due: time to send a probe; true: Timeout: no reply arrived in time.
}

// Timer bundles the due and timeout one-shots for a single heartbeat
// epoch. Cancel is idempotent and stops both.
type Timer struct {
	mu       sync.Mutex
	due      *time.Timer
	timeout  *time.Timer
	canceled bool
}

// Arm starts a new Timer for epoch: a Due event after interval, a
// Timeout event after interval+timeout, both delivered to sink. sink
// may be called from either timer's own goroutine.
func Arm(epoch uint64, interval, timeout time.Duration, sink func(Event)) *Timer {
	t := &Timer{}
	t.due = time.AfterFunc(interval, func() {
		sink(Event{Epoch: epoch, Timeout: false})
	})
	t.timeout = time.AfterFunc(interval+timeout, func() {
		sink(Event{Epoch: epoch, Timeout: true})
	})
	return t
}

// Cancel stops both timers. Safe to call more than once and safe to
// call on a nil Timer (the Connecting/Reconnecting states have none
// armed).
func (t *Timer) Cancel() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.canceled {
		return
	}
	t.canceled = true
	t.due.Stop()
	t.timeout.Stop()
}
