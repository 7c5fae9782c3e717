/*
Package connmgr implements the connection core: a single-threaded
state machine that owns one TCP session to an event-store endpoint,
multiplexes concurrent requests and subscriptions over it by
correlation id, reconnects on failure with bounded backoff, and
enforces liveness with a heartbeat probe/timeout pair.

The event-loop shape — one goroutine draining a single mailbox
channel, every other goroutine only ever sending into it — is the
teacher's own inboxManager pattern from the corpus's DDP client
(a single loop goroutine reading a channel of decoded messages and
dispatching by message type), adapted here from a fixed schema of DDP
message kinds to the Outgoing/Incoming/Control event taxonomy this
core needs. Dial-with-reconnect-and-resend is likewise grounded there:
that client's Reconnect re-sends every inflight call and subscription
after a fresh socket comes up, which is exactly what Connected(send)
replay does for this core's Operation table.
*/
package connmgr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vectorlog/client-go/codec"
	"github.com/vectorlog/client-go/corrid"
	"github.com/vectorlog/client-go/heartbeat"
	"github.com/vectorlog/client-go/operation"
	"github.com/vectorlog/client-go/pipeline"
	"github.com/vectorlog/client-go/retry"
	"github.com/vectorlog/client-go/wire"
)

type state int

const (
	stateConnecting state = iota
	stateConnected
	stateReconnecting
	stateTerminated
)

func (s state) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateConnected:
		return "connected"
	case stateReconnecting:
		return "reconnecting"
	case stateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Manager is the ConnectionManager. Construct with New and call Start
// once; all further interaction is through Submit/SubmitPackage/
// ClientDied — fire-and-forget sends into its mailbox, matching the
// "no synchronous query API" contract.
type Manager struct {
	cfg      Config
	dial     Dialer
	codec    pipeline.Codec
	factory  Factory
	observer Observer
	log      *logrus.Entry

	mailbox chan any
	done    chan struct{}
}

// New constructs a Manager. codec, factory, and observer may be nil to
// use codec.NewJSON(), DefaultFactory, and NopObserver respectively.
func New(cfg Config, dial Dialer, c pipeline.Codec, factory Factory, observer Observer, log *logrus.Entry) *Manager {
	if dial == nil {
		dial = defaultDialer
	}
	if c == nil {
		c = codec.NewJSON()
	}
	if factory == nil {
		factory = DefaultFactory
	}
	if observer == nil {
		observer = NopObserver{}
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Manager{
		cfg:      cfg.withDefaults(),
		dial:     dial,
		codec:    c,
		factory:  factory,
		observer: observer,
		log:      log,
		mailbox:  make(chan any, 256),
		done:     make(chan struct{}),
	}
}

// Start launches the event loop and issues the initial connect
// attempt. Call once.
func (m *Manager) Start() {
	go m.run()
}

// Done is closed once the manager reaches Terminated.
func (m *Manager) Done() <-chan struct{} { return m.done }

// Submit wraps out into a PackageOut with a freshly minted correlation
// id and either out's own credentials or the manager's default, then
// enqueues it as an Outgoing event.
func (m *Manager) Submit(client wire.ClientHandle, out wire.OutLike, deliver operation.Deliverer) {
	msg, creds := wire.Resolve(out)
	if creds == nil {
		creds = m.cfg.DefaultCredentials
	}
	pkg := wire.PackageOut{Message: msg, CorrelationID: corrid.New(), Credentials: creds}
	m.enqueue(outgoingEvent{client: client, pkg: pkg, deliver: deliver})
}

// SubmitPackage enqueues an already-addressed PackageOut, the second
// client-facing input shape: a caller that already knows the
// correlation id of an operation it wants to address (for example, an
// Unsubscribe aimed at a subscription it is tracking itself).
func (m *Manager) SubmitPackage(client wire.ClientHandle, pkg wire.PackageOut, deliver operation.Deliverer) {
	m.enqueue(outgoingEvent{client: client, pkg: pkg, deliver: deliver})
}

// ClientDied notifies the manager that client will submit no further
// packages; every operation it owns is torn down, sending a farewell
// package first if the operation has one.
func (m *Manager) ClientDied(client wire.ClientHandle) {
	m.enqueue(clientTerminatedEvent{client: client})
}

func (m *Manager) enqueue(ev any) {
	select {
	case m.mailbox <- ev:
	case <-m.done:
	}
}

// event kinds the mailbox carries.
type (
	outgoingEvent struct {
		client  wire.ClientHandle
		pkg     wire.PackageOut
		deliver operation.Deliverer
	}
	incomingEvent struct {
		pkg wire.PackageIn
	}
	clientTerminatedEvent struct {
		client wire.ClientHandle
	}
	connectedEvent struct {
		conn net.Conn
	}
	connectFailedEvent struct {
		err error
	}
	sessionDeadEvent struct {
		err error
	}
	reconnectTimerEvent struct {
		schedule *retry.Schedule
	}
	heartbeatEvent struct {
		ev heartbeat.Event
	}
)

// loop is everything the event loop owns exclusively; no other
// goroutine touches these fields.
type loop struct {
	state state
	ops   *operation.Table

	conn *pipeline.Pipeline
	sock net.Conn

	retrySchedule *retry.Schedule

	heartbeatTimer *heartbeat.Timer
	heartbeatID    uint64
}

func (m *Manager) run() {
	l := &loop{state: stateConnecting, ops: operation.NewTable()}
	m.issueConnect()

	for ev := range m.mailbox {
		if l.state == stateTerminated {
			continue
		}
		m.handle(l, ev)
		if l.state == stateTerminated {
			close(m.done)
			return
		}
	}
}

func (m *Manager) handle(l *loop, ev any) {
	switch e := ev.(type) {
	case outgoingEvent:
		m.handleOutgoing(l, e)
	case incomingEvent:
		if l.state == stateConnected {
			m.handleIncoming(l, e.pkg)
		}
	case clientTerminatedEvent:
		m.handleClientTerminated(l, e.client)
	case connectedEvent:
		m.handleConnected(l, e.conn)
	case connectFailedEvent:
		m.handleConnectFailed(l, e.err)
	case sessionDeadEvent:
		m.handleSessionDead(l, e.err)
	case reconnectTimerEvent:
		if l.state == stateReconnecting && l.retrySchedule == e.schedule {
			m.issueConnect()
		}
	case heartbeatEvent:
		if l.state == stateConnected {
			m.handleHeartbeatEvent(l, e.ev)
		}
	default:
		m.log.WithField("event", fmt.Sprintf("%T", ev)).Warn("connmgr: unrecognized event")
	}
}

// --- Outgoing / claim rule ------------------------------------------

func (m *Manager) handleOutgoing(l *loop, e outgoingEvent) {
	if op, ok := l.ops.Get(e.pkg.CorrelationID); ok {
		m.applyOutgoing(l, op, e.pkg)
		return
	}

	for _, op := range l.ops.ForClient(e.client) {
		if op.ClaimsOutgoing(e.pkg.Message) {
			m.applyOutgoing(l, op, e.pkg)
			return
		}
	}

	op := m.factory(e.pkg, e.client, e.deliver)
	if l.state == stateConnected && l.conn != nil {
		if next, ok := op.Connected(l.conn.Command); ok {
			op = next
		} else {
			return
		}
	}
	l.ops.Put(op)
}

// applyOutgoing transmits pkg against the operation it was claimed
// by, addressed with that operation's own correlation id rather than
// whatever the submitter happened to mint — an Unsubscribe only means
// anything to the server if it carries the subscription's id, not a
// fresh one the server has never seen.
func (m *Manager) applyOutgoing(l *loop, op operation.Operation, pkg wire.PackageOut) {
	next, ok := op.ApplyOutgoing(pkg.Message)

	pkg.CorrelationID = op.ID()
	if l.state == stateConnected && l.conn != nil {
		if err := l.conn.Command(pkg); err != nil {
			m.log.WithError(err).Debug("connmgr: claimed outgoing package failed to send")
		}
	}

	if !ok {
		l.ops.Remove(op.ID())
		return
	}
	l.ops.Put(next)
}

// --- Client death ---------------------------------------------------

func (m *Manager) handleClientTerminated(l *loop, client wire.ClientHandle) {
	for _, op := range l.ops.RemoveClient(client) {
		farewell, ok := op.ClientTerminated()
		if !ok {
			continue
		}
		if l.state == stateConnected && l.conn != nil {
			if err := l.conn.Command(farewell); err != nil {
				m.log.WithError(err).Debug("connmgr: farewell package failed to send")
			}
		}
	}
}

// --- Incoming (Connected only) --------------------------------------

func (m *Manager) handleIncoming(l *loop, in wire.PackageIn) {
	if in.Ok() {
		switch in.Message.(type) {
		case wire.HeartbeatRequest:
			m.reply(l, in.CorrelationID, wire.HeartbeatResponse{})
			return
		case wire.Ping:
			m.reply(l, in.CorrelationID, wire.Pong{})
			return
		}
	}

	if op, ok := l.ops.Get(in.CorrelationID); ok {
		if in.Ok() {
			next, ok := op.InspectIn(in.Message)
			if ok {
				l.ops.Put(next)
			} else {
				l.ops.Remove(op.ID())
			}
		} else {
			// A decode/protocol failure addressed to a known
			// operation is still delivered to it as a failure by
			// dropping the operation; concrete variants that want to
			// retry on decode failure can do so from ConnectionLost
			// semantics instead, out of this core's scope.
			l.ops.Remove(op.ID())
		}
	} else {
		m.handleStray(l, in)
	}

	m.rearmHeartbeat(l)
}

func (m *Manager) handleStray(l *loop, in wire.PackageIn) {
	if !in.Ok() {
		m.log.WithError(in.Failure).Warn("connmgr: stray decode failure")
		return
	}
	switch in.Message.(type) {
	case wire.SubscribeCompleted:
		m.log.WithField("correlationId", in.CorrelationID).Info("connmgr: defensive unsubscribe for stray SubscribeCompleted")
		m.reply(l, in.CorrelationID, wire.Unsubscribe{})
	case wire.Pong, wire.HeartbeatResponse, wire.UnsubscribeCompleted:
		// expected background noise, not worth a log line
	default:
		m.log.WithField("correlationId", in.CorrelationID).Warn("connmgr: stray inbound message with no matching operation")
	}
}

func (m *Manager) reply(l *loop, id corrid.ID, msg wire.Message) {
	if l.conn == nil {
		return
	}
	pkg := wire.PackageOut{Message: msg, CorrelationID: id, Credentials: m.cfg.DefaultCredentials}
	if err := l.conn.Command(pkg); err != nil {
		m.log.WithError(err).Debug("connmgr: reply failed to send")
	}
}

// --- Heartbeat --------------------------------------------------------

func (m *Manager) handleHeartbeatEvent(l *loop, ev heartbeat.Event) {
	if ev.Epoch != l.heartbeatID {
		return // stale epoch, P2
	}
	if !ev.Timeout {
		m.reply(l, corrid.New(), wire.HeartbeatRequest{})
		return
	}
	m.log.Warn("connmgr: heartbeat timeout, closing session")
	m.observer.HeartbeatTimeout(m.cfg.Address)
	m.killSession(l, errors.New("connmgr: heartbeat timeout"))
}

// rearmHeartbeat cancels the current heartbeat pair and starts a new
// one under a bumped epoch, per the "any successful inbound delivery"
// rule. It is never called for the HeartbeatRequest/Ping reply path:
// probes the peer sends on its own initiative do not count as evidence
// of epoch-worthy liveness, so a peer that only ever sends probes and
// never answers the manager's is still timed out. A HeartbeatResponse
// to the manager's own probe takes the ordinary inbound path and does
// rearm.
func (m *Manager) rearmHeartbeat(l *loop) {
	l.heartbeatTimer.Cancel()
	l.heartbeatID++
	m.armHeartbeat(l)
}

func (m *Manager) armHeartbeat(l *loop) {
	epoch := l.heartbeatID
	l.heartbeatTimer = heartbeat.Arm(epoch, m.cfg.HeartbeatInterval, m.cfg.HeartbeatTimeout, func(ev heartbeat.Event) {
		m.enqueue(heartbeatEvent{ev: ev})
	})
}

// --- Connect lifecycle ------------------------------------------------

func (m *Manager) issueConnect() {
	address := m.cfg.Address
	timeout := m.cfg.ConnectionTimeout
	m.observer.Connecting(address)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		conn, err := m.dial(ctx, address)
		if err != nil {
			m.enqueue(connectFailedEvent{err: err})
			return
		}
		m.enqueue(connectedEvent{conn: conn})
	}()
}

func (m *Manager) handleConnected(l *loop, conn net.Conn) {
	l.sock = conn
	l.retrySchedule = nil

	pipe := pipeline.New(conn, m.codec, func(pkg wire.PackageIn) {
		m.enqueue(incomingEvent{pkg: pkg})
	}, m.log)
	pipe.Start()
	l.conn = pipe
	go m.watchPipeline(pipe)

	for _, op := range l.ops.All() {
		if next, ok := op.Connected(pipe.Command); ok {
			l.ops.Put(next)
		} else {
			l.ops.Remove(op.ID())
		}
	}

	l.state = stateConnected
	l.heartbeatID = 0
	m.armHeartbeat(l)
	m.observer.Connected(m.cfg.Address)
}

// watchPipeline blocks until pipe dies and reports it as a session
// death; it runs in its own goroutine because the event loop must
// never block waiting on a channel it also writes to.
func (m *Manager) watchPipeline(pipe *pipeline.Pipeline) {
	<-pipe.Done()
	err := pipe.Err()
	if err == nil {
		err = errors.New("connmgr: pipeline closed")
	}
	m.enqueue(sessionDeadEvent{err: err})
}

func (m *Manager) handleConnectFailed(l *loop, err error) {
	m.observer.ConnectFailed(m.cfg.Address, err)
	if l.state == stateConnected {
		// A stale connect attempt's failure arriving after a
		// different path already reached Connected; ignore it.
		return
	}
	if l.retrySchedule == nil {
		l.retrySchedule = retry.New(m.cfg.MaxReconnections, m.cfg.ReconnectionDelayMin, m.cfg.ReconnectionDelayMax)
	}
	// These operations have never seen a live session; nobody has told
	// their clients anything yet, so termination here must still
	// deliver ConnectionLost.
	m.enterReconnecting(l, err, true)
}

func (m *Manager) handleSessionDead(l *loop, err error) {
	if l.state != stateConnected {
		return
	}
	l.heartbeatTimer.Cancel()
	l.heartbeatTimer = nil

	if l.sock != nil {
		l.sock.Close()
	}
	if l.conn != nil {
		l.conn.Close()
		l.conn = nil
	}

	for _, op := range l.ops.All() {
		if next, ok := op.ConnectionLost(); ok {
			l.ops.Put(next)
		} else {
			l.ops.Remove(op.ID())
		}
	}

	l.retrySchedule = retry.New(m.cfg.MaxReconnections, m.cfg.ReconnectionDelayMin, m.cfg.ReconnectionDelayMax)
	// ConnectionLost has already been delivered to every surviving
	// operation's client above; termination from here must not
	// deliver it a second time.
	m.enterReconnecting(l, err, false)
}

// enterReconnecting advances l.retrySchedule once and either arms the
// next connect attempt or, once the schedule is exhausted, terminates
// the manager. notifyOnTerminate controls whether termination itself
// delivers ConnectionLost to every remaining operation's client —
// callers that already did so (a lost session) pass false to avoid a
// second delivery.
func (m *Manager) enterReconnecting(l *loop, cause error, notifyOnTerminate bool) {
	delay, next, ok := l.retrySchedule.Next()
	if !ok {
		m.terminate(l, cause, notifyOnTerminate)
		return
	}
	l.retrySchedule = next
	l.state = stateReconnecting
	attempt := m.cfg.MaxReconnections - next.Remaining()
	m.observer.Reconnecting(attempt, delay)

	schedule := next
	time.AfterFunc(delay, func() {
		m.enqueue(reconnectTimerEvent{schedule: schedule})
	})
}

func (m *Manager) terminate(l *loop, cause error, notifyOps bool) {
	m.log.WithError(cause).Error("connmgr: reconnect budget exhausted, terminating")
	if notifyOps {
		for _, op := range l.ops.All() {
			op.ConnectionLost()
		}
	}
	l.state = stateTerminated
	m.observer.Terminated(cause.Error())
}

// killSession forces the live socket closed, which watchPipeline (or
// a direct read/write failure) will observe and report as
// sessionDeadEvent, keeping there being exactly one path out of
// Connected.
func (m *Manager) killSession(l *loop, cause error) {
	m.log.WithError(cause).Debug("connmgr: forcing session closed")
	if l.sock != nil {
		l.sock.Close()
	}
	if l.conn != nil {
		l.conn.Close()
	}
}
