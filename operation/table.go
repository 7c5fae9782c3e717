package operation

import (
	"github.com/vectorlog/client-go/corrid"
	"github.com/vectorlog/client-go/wire"
)

// Table is the OneToMany dual index: a primary map keyed by
// correlation id (unique) and a secondary multimap keyed by client
// handle (non-unique). It is the one place that must keep both
// indices from drifting apart, so every mutation goes through here
// rather than touching either map directly. Not safe for concurrent
// use — the ConnectionManager's single-threaded event loop is its
// only caller.
type Table struct {
	byID     map[corrid.ID]Operation
	byClient map[string]map[corrid.ID]Operation
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		byID:     make(map[corrid.ID]Operation),
		byClient: make(map[string]map[corrid.ID]Operation),
	}
}

// Get looks up an operation by correlation id.
func (t *Table) Get(id corrid.ID) (Operation, bool) {
	op, ok := t.byID[id]
	return op, ok
}

// ForClient returns every operation currently owned by client, in no
// particular order.
func (t *Table) ForClient(client wire.ClientHandle) []Operation {
	bucket := t.byClient[client.ID()]
	if len(bucket) == 0 {
		return nil
	}
	out := make([]Operation, 0, len(bucket))
	for _, op := range bucket {
		out = append(out, op)
	}
	return out
}

// Put inserts op, replacing whatever was previously stored at its
// correlation id. If the id was previously held by a different
// client, that stale client-index entry is dropped first so I2/I3
// never drift.
func (t *Table) Put(op Operation) {
	if old, ok := t.byID[op.ID()]; ok {
		t.unindexClient(old)
	}
	t.byID[op.ID()] = op
	t.indexClient(op)
}

// Remove deletes the operation at id, if any, from both indices.
func (t *Table) Remove(id corrid.ID) {
	op, ok := t.byID[id]
	if !ok {
		return
	}
	delete(t.byID, id)
	t.unindexClient(op)
}

// RemoveClient deletes every operation owned by client and returns
// them, for the caller to deliver clientTerminated farewells against.
func (t *Table) RemoveClient(client wire.ClientHandle) []Operation {
	ops := t.ForClient(client)
	for _, op := range ops {
		delete(t.byID, op.ID())
	}
	delete(t.byClient, client.ID())
	return ops
}

// Len reports the number of operations currently held, the table's
// I1-guaranteed uniqueness making this equivalent to len(byID).
func (t *Table) Len() int { return len(t.byID) }

// All returns every operation in the table, in no particular order.
// Used for the full-table Connected/ConnectionLost sweep.
func (t *Table) All() []Operation {
	out := make([]Operation, 0, len(t.byID))
	for _, op := range t.byID {
		out = append(out, op)
	}
	return out
}

func (t *Table) indexClient(op Operation) {
	key := op.Client().ID()
	bucket, ok := t.byClient[key]
	if !ok {
		bucket = make(map[corrid.ID]Operation)
		t.byClient[key] = bucket
	}
	bucket[op.ID()] = op
}

func (t *Table) unindexClient(op Operation) {
	key := op.Client().ID()
	bucket, ok := t.byClient[key]
	if !ok {
		return
	}
	delete(bucket, op.ID())
	if len(bucket) == 0 {
		delete(t.byClient, key)
	}
}
