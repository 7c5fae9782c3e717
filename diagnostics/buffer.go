package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// eventBoxPrefix namespaces an instance's buffered-event ZSet.
const eventBoxPrefix = "connmgr:events:"

// DefaultEventCap and DefaultEventTTL bound how much history
// EventBuffer keeps per instance when no monitor is attached.
const (
	DefaultEventCap = 500
	DefaultEventTTL = 24 * time.Hour
)

// EventBuffer retains recently published diagnostic events for an
// instance, scored by their SequenceCache number, so a monitor that
// connects late (or reconnects itself) can catch up instead of missing
// whatever was published while it was away. This is diagnostic
// telemetry about the connmgr lifecycle, not a buffer of pending
// client requests — it never feeds back into the connection core.
type EventBuffer struct {
	store *Store
	cap   int64
	ttl   time.Duration
}

// NewEventBuffer constructs an EventBuffer against store. cap <= 0 and
// ttl <= 0 fall back to DefaultEventCap/DefaultEventTTL.
func NewEventBuffer(store *Store, cap int64, ttl time.Duration) *EventBuffer {
	if cap <= 0 {
		cap = DefaultEventCap
	}
	if ttl <= 0 {
		ttl = DefaultEventTTL
	}
	return &EventBuffer{store: store, cap: cap, ttl: ttl}
}

// Store appends ev to its instance's buffer, trims it back down to cap
// entries, and refreshes its TTL.
func (b *EventBuffer) Store(ctx context.Context, ev Event) error {
	key := eventBoxPrefix + ev.InstanceID

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("diagnostics: marshal event: %w", err)
	}

	if err := b.store.client.ZAdd(ctx, key, redis.Z{
		Score:  float64(ev.Seq),
		Member: string(data),
	}).Err(); err != nil {
		return fmt.Errorf("diagnostics: store event: %w", err)
	}

	b.store.client.ZRemRangeByRank(ctx, key, 0, -b.cap-1)
	b.store.client.Expire(ctx, key, b.ttl)
	return nil
}

// Fetch returns instanceID's buffered events with sequence >= fromSeq,
// oldest first, up to count.
func (b *EventBuffer) Fetch(ctx context.Context, instanceID string, fromSeq, count int64) ([]Event, error) {
	key := eventBoxPrefix + instanceID
	results, err := b.store.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:   fmt.Sprintf("%d", fromSeq),
		Max:   "+inf",
		Count: count,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("diagnostics: fetch events: %w", err)
	}
	return decodeEvents(results), nil
}

// Ack drops every buffered event up to and including maxSeq, once a
// monitor has confirmed it has them.
func (b *EventBuffer) Ack(ctx context.Context, instanceID string, maxSeq int64) error {
	key := eventBoxPrefix + instanceID
	return b.store.client.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", maxSeq)).Err()
}

// Count reports how many events are currently buffered for instanceID.
func (b *EventBuffer) Count(ctx context.Context, instanceID string) (int64, error) {
	return b.store.client.ZCard(ctx, eventBoxPrefix+instanceID).Result()
}

// Clear drops every buffered event for instanceID.
func (b *EventBuffer) Clear(ctx context.Context, instanceID string) error {
	return b.store.client.Del(ctx, eventBoxPrefix+instanceID).Err()
}

func decodeEvents(raw []string) []Event {
	events := make([]Event, 0, len(raw))
	for _, s := range raw {
		var ev Event
		if err := json.Unmarshal([]byte(s), &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events
}
