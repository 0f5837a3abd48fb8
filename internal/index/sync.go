package index

import (
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/ecsindex/internal/core/ecs"
	"github.com/l1jgo/ecsindex/internal/metrics"
)

// Pass reports one synchronization pass.
type Pass struct {
	Drained    int // distinct dirty entities
	Reconciled int // entities whose index entry moved
	Unchanged  int // dirty entities whose key was already current
	Purged     int // entities dropped because they no longer hold the component
	Elapsed    time.Duration
}

// Stats accumulates over the life of a Syncer.
type Stats struct {
	Passes     uint64 // passes that drained something
	Skipped    uint64 // passes that found nothing dirty
	Reconciled uint64
	Unchanged  uint64
	Purged     uint64
	ForwardOps uint64 // bucket insertions and removals
	ReverseOps uint64 // reverse map writes and deletions
}

// Change is one reconciled entity, keys rendered with %v.
type Change struct {
	Component string
	Entity    ecs.EntityID
	Old       string
	New       string
	Added     bool // entity had no key before
	Removed   bool // entity has no key now
}

// ChangeSink receives every reconciled change during a pass. It runs inside
// the sync unit and must not block.
type ChangeSink interface {
	Record(c Change)
}

// Syncer owns the index for component C and reconciles it against the
// store. key derives the indexed value from the component.
type Syncer[C any, K comparable] struct {
	typ   reflect.Type
	name  string
	store *ecs.ComponentStore[C]
	key   func(C) K
	dirty *Tracker
	idx   *Index[K]

	log  *zap.Logger
	obs  metrics.Observer
	sink ChangeSink

	stats Stats
}

func (s *Syncer[C, K]) componentType() reflect.Type { return s.typ }
func (s *Syncer[C, K]) keyType() reflect.Type       { return reflect.TypeOf((*K)(nil)).Elem() }

// Name returns the component type name used in logs and metrics.
func (s *Syncer[C, K]) Name() string { return s.name }

// Pending returns how many distinct entities wait for the next pass.
func (s *Syncer[C, K]) Pending() int { return s.dirty.Len() }

func (s *Syncer[C, K]) Stats() Stats {
	st := s.stats
	st.ForwardOps = s.idx.forwardOps
	st.ReverseOps = s.idx.reverseOps
	return st
}

// Sync drains the tracker and brings the index in line with the store.
// With nothing dirty it returns at once.
func (s *Syncer[C, K]) Sync() Pass {
	if s.dirty.Len() == 0 {
		s.stats.Skipped++
		s.obs.ObserveSync(metrics.SyncSample{Component: s.name, Skipped: true})
		return Pass{}
	}

	start := time.Now()
	dirty := s.dirty.Drain()
	p := Pass{Drained: len(dirty)}
	for id := range dirty {
		old, hadOld := s.idx.value(id)
		var next K
		c, hasNew := s.store.Get(id)
		if hasNew {
			next = s.key(c)
		}
		if hadOld == hasNew && (!hadOld || old == next) {
			p.Unchanged++
			continue
		}
		s.idx.reconcile(id, old, hadOld, next, hasNew)
		p.Reconciled++
		if !hasNew {
			p.Purged++
		}
		if s.sink != nil {
			s.sink.Record(s.change(id, old, hadOld, next, hasNew))
		}
	}
	p.Elapsed = time.Since(start)

	s.stats.Passes++
	s.stats.Reconciled += uint64(p.Reconciled)
	s.stats.Unchanged += uint64(p.Unchanged)
	s.stats.Purged += uint64(p.Purged)

	s.obs.ObserveSync(metrics.SyncSample{
		Component:  s.name,
		Drained:    p.Drained,
		Reconciled: p.Reconciled,
		Unchanged:  p.Unchanged,
		Purged:     p.Purged,
		Elapsed:    p.Elapsed,
	})
	s.log.Debug("index synced",
		zap.String("component", s.name),
		zap.Int("drained", p.Drained),
		zap.Int("reconciled", p.Reconciled),
		zap.Int("unchanged", p.Unchanged),
		zap.Int("purged", p.Purged),
		zap.Duration("elapsed", p.Elapsed),
	)
	return p
}

func (s *Syncer[C, K]) change(id ecs.EntityID, old K, hadOld bool, next K, hasNew bool) Change {
	c := Change{Component: s.name, Entity: id, Added: !hadOld, Removed: !hasNew}
	if hadOld {
		c.Old = fmt.Sprint(old)
	}
	if hasNew {
		c.New = fmt.Sprint(next)
	}
	return c
}
