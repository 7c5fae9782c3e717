package diagnostics

import (
	"context"
	"fmt"
	"time"
)

// presenceKeyPrefix namespaces an instance's presence hash.
const presenceKeyPrefix = "connmgr:instance:"

// DefaultPresenceTTL is the window an instance's record survives
// without a refreshing Heartbeat call, scaled to a heartbeat-probe
// cadence measured in tens of seconds.
const DefaultPresenceTTL = 90 * time.Second

// Presence records which client instances embedding this core are
// alive, where they're connecting to, and what state they're in —
// inventory for a fleet of processes, not anything the connection core
// itself consults.
type Presence struct {
	store *Store
	ttl   time.Duration
}

// NewPresence constructs a Presence manager against store. ttl <= 0
// uses DefaultPresenceTTL.
func NewPresence(store *Store, ttl time.Duration) *Presence {
	if ttl <= 0 {
		ttl = DefaultPresenceTTL
	}
	return &Presence{store: store, ttl: ttl}
}

// Register creates or replaces instanceID's presence record and arms
// its TTL. address is the event-store endpoint it is configured to
// reach, state its current connmgr lifecycle state.
func (p *Presence) Register(ctx context.Context, instanceID, address, state string) error {
	key := presenceKeyPrefix + instanceID
	pipe := p.store.client.Pipeline()
	pipe.HSet(ctx, key, map[string]any{
		"address":        address,
		"state":          state,
		"last_heartbeat": time.Now().Unix(),
	})
	pipe.Expire(ctx, key, p.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("diagnostics: register presence: %w", err)
	}
	return nil
}

// Heartbeat refreshes instanceID's TTL and last-seen field without
// touching the rest of its record.
func (p *Presence) Heartbeat(ctx context.Context, instanceID string) error {
	key := presenceKeyPrefix + instanceID
	pipe := p.store.client.Pipeline()
	pipe.HSet(ctx, key, "last_heartbeat", time.Now().Unix())
	pipe.Expire(ctx, key, p.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Deregister removes instanceID's presence record immediately, for a
// clean shutdown rather than waiting out the TTL.
func (p *Presence) Deregister(ctx context.Context, instanceID string) error {
	return p.store.client.Del(ctx, presenceKeyPrefix+instanceID).Err()
}

// IsActive reports whether instanceID currently has a live record.
func (p *Presence) IsActive(ctx context.Context, instanceID string) (bool, error) {
	n, err := p.store.client.Exists(ctx, presenceKeyPrefix+instanceID).Result()
	return n > 0, err
}

// ListActive returns every instance id with a live presence record.
// Uses KEYS and is meant for debugging/operator tooling, not a hot
// path.
func (p *Presence) ListActive(ctx context.Context) ([]string, error) {
	keys, err := p.store.client.Keys(ctx, presenceKeyPrefix+"*").Result()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = k[len(presenceKeyPrefix):]
	}
	return ids, nil
}
