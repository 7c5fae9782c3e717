package diagnostics

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// sequenceKeyPrefix namespaces a per-instance monotonic counter.
const sequenceKeyPrefix = "connmgr:seq:"

// SequenceCache assigns each diagnostic event published for an
// instance a monotonically increasing number, so a monitor consuming
// them out of a Publisher and an EventBuffer can detect gaps or
// reordering.
type SequenceCache struct {
	store *Store
}

// NewSequenceCache constructs a SequenceCache against store.
func NewSequenceCache(store *Store) *SequenceCache {
	return &SequenceCache{store: store}
}

// Next returns instanceID's next sequence number, starting at 1.
func (c *SequenceCache) Next(ctx context.Context, instanceID string) (int64, error) {
	seq, err := c.store.client.Incr(ctx, sequenceKeyPrefix+instanceID).Result()
	if err != nil {
		return 0, fmt.Errorf("diagnostics: next sequence: %w", err)
	}
	return seq, nil
}

// Current returns instanceID's last-issued sequence number without
// advancing it, or 0 if none has been issued yet.
func (c *SequenceCache) Current(ctx context.Context, instanceID string) (int64, error) {
	seq, err := c.store.client.Get(ctx, sequenceKeyPrefix+instanceID).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return seq, err
}

// Reset clears instanceID's counter. Test-only.
func (c *SequenceCache) Reset(ctx context.Context, instanceID string) error {
	return c.store.client.Del(ctx, sequenceKeyPrefix+instanceID).Err()
}
