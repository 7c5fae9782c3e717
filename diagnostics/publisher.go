package diagnostics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
)

// channelPrefix namespaces an instance's pub/sub channel.
const channelPrefix = "connmgr:diagnostics:"

// Publisher turns connmgr.Observer callbacks into sequenced Events,
// publishing each to its instance's channel for any attached monitor
// and retaining it in an EventBuffer for one that attaches late. It
// satisfies connmgr.Observer by structure, not by importing connmgr —
// diagnostics has no reason to depend on the connection core's types
// beyond the method shapes it already mirrors.
type Publisher struct {
	instanceID string
	store      *Store
	seq        *SequenceCache
	buffer     *EventBuffer
	log        *logrus.Entry
}

// NewPublisher constructs a Publisher for instanceID, sharing store
// with whatever Presence/SequenceCache/EventBuffer the caller also
// constructs against it.
func NewPublisher(instanceID string, store *Store, log *logrus.Entry) *Publisher {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Publisher{
		instanceID: instanceID,
		store:      store,
		seq:        NewSequenceCache(store),
		buffer:     NewEventBuffer(store, 0, 0),
		log:        log,
	}
}

func (p *Publisher) publish(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	seq, err := p.seq.Next(ctx, p.instanceID)
	if err != nil {
		p.log.WithError(err).Warn("diagnostics: failed to assign sequence number")
		return
	}
	ev.InstanceID = p.instanceID
	ev.Seq = seq
	ev.At = time.Now()

	if err := p.buffer.Store(ctx, ev); err != nil {
		p.log.WithError(err).Warn("diagnostics: failed to buffer event")
	}

	data, err := json.Marshal(ev)
	if err != nil {
		p.log.WithError(err).Warn("diagnostics: failed to marshal event")
		return
	}
	if err := p.store.client.Publish(ctx, channelPrefix+p.instanceID, data).Err(); err != nil {
		p.log.WithError(err).Debug("diagnostics: publish failed, event remains in buffer")
	}
}

// Connecting implements connmgr.Observer.
func (p *Publisher) Connecting(address string) {
	p.publish(Event{Kind: EventConnecting, Address: address})
}

// Connected implements connmgr.Observer.
func (p *Publisher) Connected(address string) {
	p.publish(Event{Kind: EventConnected, Address: address})
}

// ConnectFailed implements connmgr.Observer.
func (p *Publisher) ConnectFailed(address string, err error) {
	p.publish(Event{Kind: EventConnectFailed, Address: address, Err: err.Error()})
}

// Reconnecting implements connmgr.Observer.
func (p *Publisher) Reconnecting(attempt int, delay time.Duration) {
	p.publish(Event{Kind: EventReconnecting, Attempt: attempt, Delay: delay})
}

// HeartbeatTimeout implements connmgr.Observer.
func (p *Publisher) HeartbeatTimeout(address string) {
	p.publish(Event{Kind: EventHeartbeatTimeout, Address: address})
}

// Terminated implements connmgr.Observer.
func (p *Publisher) Terminated(reason string) {
	p.publish(Event{Kind: EventTerminated, Err: reason})
}

// Backlog returns this instance's buffered events with sequence >=
// fromSeq, for a monitor catching up after attaching late.
func (p *Publisher) Backlog(ctx context.Context, fromSeq, count int64) ([]Event, error) {
	return p.buffer.Fetch(ctx, p.instanceID, fromSeq, count)
}

// Channel is the Redis pub/sub channel name a monitor should subscribe
// to for this instance's live events.
func (p *Publisher) Channel() string {
	return channelPrefix + p.instanceID
}
