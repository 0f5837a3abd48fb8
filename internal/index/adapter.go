package index

import (
	"fmt"
	"reflect"
	"time"

	"github.com/l1jgo/ecsindex/internal/core/ecs"
	"github.com/l1jgo/ecsindex/internal/core/system"
)

// Ref is a consumer's read-only handle on the index of one component type.
// Its Access is the dependency a consumer system must declare: a read of the
// component and a read of the index. The runner then keeps the consumer away
// from writers of the component and the registry puts a sync unit in front.
type Ref[K comparable] struct {
	typ reflect.Type
	idx *Index[K]
}

// RegisterConsumer returns the handle for the index over C. It fails with
// ErrUninitializedIndex when C is not tracked and ErrKeyMismatch when it is
// tracked by a key other than K.
func RegisterConsumer[C any, K comparable](r *Registry) (*Ref[K], error) {
	t := reflect.TypeOf((*C)(nil)).Elem()
	e, ok := r.lookup(t)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUninitializedIndex, t)
	}
	s, ok := e.(*Syncer[C, K])
	if !ok {
		return nil, fmt.Errorf("%w: %s is keyed by %s, not %s", ErrKeyMismatch, t, e.keyType(), reflect.TypeOf((*K)(nil)).Elem())
	}
	return &Ref[K]{typ: t, idx: s.idx}, nil
}

func (r *Ref[K]) Get(k K) []ecs.EntityID { return r.idx.Get(k) }
func (r *Ref[K]) Each(k K, fn func(ecs.EntityID) bool) { r.idx.Each(k, fn) }
func (r *Ref[K]) Count(k K) int { return r.idx.Count(k) }
func (r *Ref[K]) Contains(k K, id ecs.EntityID) bool { return r.idx.Contains(k, id) }

// Access returns the consumer's dependency descriptor.
func (r *Ref[K]) Access() []system.Access {
	return []system.Access{
		{Resource: system.ComponentOf(r.typ)},
		{Resource: system.IndexOf(r.typ)},
	}
}

// syncUnit runs one entry's pass as a scheduled system.
type syncUnit struct {
	e     entry
	phase system.Phase
}

func (u *syncUnit) Name() string { return "sync[" + u.e.Name() + "]" }
func (u *syncUnit) Phase() system.Phase { return u.phase }
func (u *syncUnit) Update(time.Duration) { u.e.Sync() }
func (u *syncUnit) Access() []system.Access {
	t := u.e.componentType()
	return []system.Access{
		{Resource: system.ComponentOf(t)},
		{Resource: system.IndexOf(t), Write: true},
	}
}

// RegisterSyncPoint returns the sync unit for component type t in the given
// phase. The planner calls it for every sync it inserts; callers may also
// register one explicitly to force a pass at a fixed point.
func (r *Registry) RegisterSyncPoint(t reflect.Type, phase system.Phase) (system.System, error) {
	e, ok := r.lookup(t)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUninitializedIndex, t)
	}
	return &syncUnit{e: e, phase: phase}, nil
}

func isSync(u *system.Unit) bool {
	_, ok := u.System.(*syncUnit)
	return ok
}

// consumed lists the index types u reads.
func consumed(u *system.Unit) []reflect.Type {
	var out []reflect.Type
	for _, a := range u.Access {
		if a.Resource.Kind == system.KindIndex && !a.Write {
			out = append(out, a.Resource.Type)
		}
	}
	return out
}

// writes reports whether u may change the store of t.
func writes(u *system.Unit, t reflect.Type) bool {
	if u.Exclusive {
		return true
	}
	_, w := u.Touches(system.ComponentOf(t))
	return w
}

// Plan implements system.Planner. Walking the phase-ordered units, it puts a
// sync unit in front of each consumer of C whose index may be stale: before
// the first consumer of the tick, and before any consumer that follows a
// writer of C. A trailing sync per tracked type closes the tick.
func (r *Registry) Plan(units []system.Unit) ([]system.Unit, error) {
	types := r.types()
	stale := make(map[reflect.Type]bool, len(types))
	for _, t := range types {
		stale[t] = true
	}

	out := make([]system.Unit, 0, len(units)+2*len(types))
	for i := range units {
		u := &units[i]
		if s, ok := u.System.(*syncUnit); ok {
			out = append(out, *u)
			stale[s.e.componentType()] = false
			continue
		}
		for _, t := range consumed(u) {
			isStale, ok := stale[t]
			if !ok {
				return nil, fmt.Errorf("%w: %s consumes %s", ErrUninitializedIndex, u.Name, t)
			}
			if !isStale {
				continue
			}
			s, err := r.RegisterSyncPoint(t, u.Phase)
			if err != nil {
				return nil, err
			}
			out = append(out, system.NewUnit(s))
			stale[t] = false
		}
		out = append(out, *u)
		for _, t := range types {
			if writes(u, t) {
				stale[t] = true
			}
		}
	}

	for _, t := range types {
		s, err := r.RegisterSyncPoint(t, system.PhaseSync)
		if err != nil {
			return nil, err
		}
		out = append(out, system.NewUnit(s))
	}
	return out, nil
}

// Verify implements system.Planner. A consumer of C may not share a batch
// with a writer or a sync of C, and for every writer of C in an earlier
// batch some sync of C must sit strictly between the two.
func (r *Registry) Verify(plan *system.Plan) error {
	pos := plan.Position()
	units := plan.Units()
	for _, c := range units {
		if isSync(c) {
			continue
		}
		for _, t := range consumed(c) {
			if syncs(units, pos, t, pos[c]-1, pos[c]+1) {
				return fmt.Errorf("%w: %s shares a batch with sync[%s]", ErrOrderingViolation, c.Name, t)
			}
			for _, w := range units {
				if w == c || isSync(w) || !writes(w, t) || pos[w] > pos[c] {
					continue
				}
				if pos[w] == pos[c] {
					return fmt.Errorf("%w: %s reads %s alongside %s", ErrOrderingViolation, c.Name, t, w.Name)
				}
				if !syncs(units, pos, t, pos[w], pos[c]) {
					return fmt.Errorf("%w: %s reads %s after %s without a sync", ErrOrderingViolation, c.Name, t, w.Name)
				}
			}
		}
	}
	return nil
}

// syncs reports whether a sync unit of t sits in a batch strictly between
// after and before.
func syncs(units []*system.Unit, pos map[*system.Unit]int, t reflect.Type, after, before int) bool {
	for _, s := range units {
		su, ok := s.System.(*syncUnit)
		if ok && su.e.componentType() == t && pos[s] > after && pos[s] < before {
			return true
		}
	}
	return false
}
