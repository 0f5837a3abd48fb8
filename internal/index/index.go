package index

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/l1jgo/ecsindex/internal/core/ecs"
)

// Index maps key values to entity sets and entities back to their key.
// Each forward bucket is a 64-bit roaring bitmap of EntityIDs.
//
// Only the owning Syncer mutates an Index. The runner never schedules the
// sync unit alongside a consumer, so reads take no lock.
type Index[K comparable] struct {
	forward map[K]*roaring64.Bitmap
	reverse map[ecs.EntityID]K

	forwardOps uint64
	reverseOps uint64
}

func newIndex[K comparable]() *Index[K] {
	return &Index[K]{
		forward: make(map[K]*roaring64.Bitmap),
		reverse: make(map[ecs.EntityID]K),
	}
}

// Get returns every entity whose key equals k, in no particular order.
// A miss returns an empty, non-nil slice.
func (x *Index[K]) Get(k K) []ecs.EntityID {
	b, ok := x.forward[k]
	if !ok {
		return []ecs.EntityID{}
	}
	ids := make([]ecs.EntityID, 0, b.GetCardinality())
	it := b.Iterator()
	for it.HasNext() {
		ids = append(ids, ecs.EntityID(it.Next()))
	}
	return ids
}

// Each calls fn for every entity keyed by k until fn returns false.
func (x *Index[K]) Each(k K, fn func(ecs.EntityID) bool) {
	b, ok := x.forward[k]
	if !ok {
		return
	}
	it := b.Iterator()
	for it.HasNext() {
		if !fn(ecs.EntityID(it.Next())) {
			return
		}
	}
}

func (x *Index[K]) Count(k K) int {
	if b, ok := x.forward[k]; ok {
		return int(b.GetCardinality())
	}
	return 0
}

func (x *Index[K]) Contains(k K, id ecs.EntityID) bool {
	b, ok := x.forward[k]
	return ok && b.Contains(uint64(id))
}

// Len returns the number of entities in the index.
func (x *Index[K]) Len() int { return len(x.reverse) }

func (x *Index[K]) value(id ecs.EntityID) (K, bool) {
	k, ok := x.reverse[id]
	return k, ok
}

// reconcile moves id from its old bucket to its new one. hadOld/hasNew say
// whether the entity was indexed before and whether it still holds the
// component now.
func (x *Index[K]) reconcile(id ecs.EntityID, old K, hadOld bool, next K, hasNew bool) {
	if hadOld {
		if b, ok := x.forward[old]; ok {
			b.Remove(uint64(id))
			if b.IsEmpty() {
				delete(x.forward, old)
			}
			x.forwardOps++
		}
	}
	if hasNew {
		b, ok := x.forward[next]
		if !ok {
			b = roaring64.New()
			x.forward[next] = b
		}
		b.Add(uint64(id))
		x.forwardOps++
		x.reverse[id] = next
		x.reverseOps++
		return
	}
	if hadOld {
		delete(x.reverse, id)
		x.reverseOps++
	}
}
