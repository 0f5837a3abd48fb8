package index

import (
	"sync"

	"github.com/l1jgo/ecsindex/internal/core/ecs"
)

const defaultShards = 16

// DirtySet is a drained batch of entities. The value is true when the entity
// was marked removed at least once since the previous drain.
type DirtySet map[ecs.EntityID]bool

// Tracker records which entities need a recheck. It never records values.
// Marks are spread over shards by entity index, each behind its own mutex,
// so writers working on disjoint entities rarely meet.
type Tracker struct {
	shards []shard
	mask   uint32
}

type shard struct {
	mu  sync.Mutex
	set DirtySet
	_   [40]byte // keep neighbouring shard locks off one cache line
}

// NewTracker creates a tracker with n shards rounded up to a power of two.
func NewTracker(n int) *Tracker {
	if n <= 0 {
		n = defaultShards
	}
	size := 1
	for size < n {
		size <<= 1
	}
	t := &Tracker{
		shards: make([]shard, size),
		mask:   uint32(size - 1),
	}
	for i := range t.shards {
		t.shards[i].set = make(DirtySet)
	}
	return t
}

func (t *Tracker) shard(id ecs.EntityID) *shard {
	return &t.shards[id.Index()&t.mask]
}

// Mark flags id for a recheck. Repeated marks are free.
func (t *Tracker) Mark(id ecs.EntityID) {
	s := t.shard(id)
	s.mu.Lock()
	if _, ok := s.set[id]; !ok {
		s.set[id] = false
	}
	s.mu.Unlock()
}

// MarkRemoved flags id with a tombstone.
func (t *Tracker) MarkRemoved(id ecs.EntityID) {
	s := t.shard(id)
	s.mu.Lock()
	s.set[id] = true
	s.mu.Unlock()
}

// Len returns the number of distinct pending entities.
func (t *Tracker) Len() int {
	n := 0
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		n += len(s.set)
		s.mu.Unlock()
	}
	return n
}

// Drain hands over everything marked so far and leaves each shard empty.
// Only the Syncer calls it.
func (t *Tracker) Drain() DirtySet {
	out := make(DirtySet)
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		taken := s.set
		if len(taken) > 0 {
			s.set = make(DirtySet, len(taken))
		}
		s.mu.Unlock()
		for id, removed := range taken {
			out[id] = removed
		}
	}
	return out
}
