package index

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/l1jgo/ecsindex/internal/core/ecs"
	"github.com/l1jgo/ecsindex/internal/metrics"
)

// entry is the type-erased view of a Syncer.
type entry interface {
	componentType() reflect.Type
	keyType() reflect.Type
	Name() string
	Sync() Pass
	Pending() int
	Stats() Stats
}

// Option configures a Registry.
type Option func(*Registry)

// WithShards sets the shard count of every tracker the registry creates.
func WithShards(n int) Option {
	return func(r *Registry) { r.shards = n }
}

func WithLogger(log *zap.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

func WithObserver(obs metrics.Observer) Option {
	return func(r *Registry) {
		if obs != nil {
			r.obs = obs
		}
	}
}

// WithChangeSink forwards every reconciled change to sink.
func WithChangeSink(sink ChangeSink) Option {
	return func(r *Registry) { r.sink = sink }
}

// Registry holds one index entry per component type of a World. Entries are
// created on first reference and live as long as the registry.
type Registry struct {
	mu      sync.Mutex // only protects entry creation and lookup
	world   *ecs.World
	entries map[reflect.Type]entry
	order   []reflect.Type

	shards int
	log    *zap.Logger
	obs    metrics.Observer
	sink   ChangeSink
}

func NewRegistry(world *ecs.World, opts ...Option) *Registry {
	r := &Registry{
		world:   world,
		entries: make(map[reflect.Type]entry),
		shards:  defaultShards,
		log:     zap.NewNop(),
		obs:     metrics.Noop{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Track indexes C by its own value.
func Track[C comparable](r *Registry) *Syncer[C, C] {
	return TrackBy(r, func(c C) C { return c })
}

// TrackBy indexes C by key(c). The first call for a given C creates the
// entry; later calls return it and ignore key. Asking for a different key
// type than the first call is a programming error and panics.
//
// Entities that already hold C are marked dirty, so the first pass indexes
// them.
func TrackBy[C any, K comparable](r *Registry, key func(C) K) *Syncer[C, K] {
	t := reflect.TypeOf((*C)(nil)).Elem()

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[t]; ok {
		s, ok := e.(*Syncer[C, K])
		if !ok {
			panic(fmt.Sprintf("index: %s is already tracked by key %s, not %s", t, e.keyType(), reflect.TypeOf((*K)(nil)).Elem()))
		}
		return s
	}

	store := ecs.Store[C](r.world)
	s := &Syncer[C, K]{
		typ:   t,
		name:  t.String(),
		store: store,
		key:   key,
		dirty: NewTracker(r.shards),
		idx:   newIndex[K](),
		log:   r.log,
		obs:   r.obs,
		sink:  r.sink,
	}
	store.Each(func(id ecs.EntityID, _ C) { s.dirty.Mark(id) })
	store.Watch(s.dirty)

	r.entries[t] = s
	r.order = append(r.order, t)
	r.log.Info("index created",
		zap.String("component", s.name),
		zap.Stringer("key", s.keyType()),
		zap.Int("seeded", store.Len()),
	)
	return s
}

func (r *Registry) lookup(t reflect.Type) (entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[t]
	return e, ok
}

func (r *Registry) types() []reflect.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]reflect.Type(nil), r.order...)
}

// Tracked reports whether C has an index entry.
func Tracked[C any](r *Registry) bool {
	_, ok := r.lookup(reflect.TypeOf((*C)(nil)).Elem())
	return ok
}

// SyncAll runs a pass for every entry in creation order. Setup code uses it
// to settle indexes outside the runner.
func (r *Registry) SyncAll() int {
	n := 0
	for _, t := range r.types() {
		e, _ := r.lookup(t)
		n += e.Sync().Reconciled
	}
	return n
}

// Stats returns the accumulated stats of every entry, keyed by component name.
func (r *Registry) Stats() map[string]Stats {
	out := make(map[string]Stats)
	for _, t := range r.types() {
		e, _ := r.lookup(t)
		out[e.Name()] = e.Stats()
	}
	return out
}
