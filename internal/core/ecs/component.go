package ecs

import "reflect"

// Removable is implemented by all component stores so the Registry can
// bulk-remove an entity's data from every store on destroy.
type Removable interface {
	Remove(id EntityID) bool
}

// Watcher receives change notifications from a ComponentStore. Calls carry
// only the entity, never the value.
type Watcher interface {
	Mark(id EntityID)
	MarkRemoved(id EntityID)
}

// ComponentStore holds one value of T per entity. Values are stored by value
// and Get returns a copy, so every change has to go through Set, Mutate or
// Remove, and every one of those notifies the attached watchers.
//
// A store is not locked. The runner never schedules two writers of the same
// component type in one batch, and readers only share batches with readers.
type ComponentStore[T any] struct {
	data     map[EntityID]T
	watchers []Watcher
}

func NewComponentStore[T any]() *ComponentStore[T] {
	return &ComponentStore[T]{
		data: make(map[EntityID]T, 256),
	}
}

// Type returns the component type this store holds.
func (s *ComponentStore[T]) Type() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Watch attaches w to all future writes and removals.
func (s *ComponentStore[T]) Watch(w Watcher) {
	s.watchers = append(s.watchers, w)
}

func (s *ComponentStore[T]) Set(id EntityID, c T) {
	s.data[id] = c
	s.notify(id)
}

// Mutate applies fn to the entity's value in place. It reports false, without
// calling fn, when the entity has no T.
func (s *ComponentStore[T]) Mutate(id EntityID, fn func(*T)) bool {
	c, ok := s.data[id]
	if !ok {
		return false
	}
	fn(&c)
	s.data[id] = c
	s.notify(id)
	return true
}

func (s *ComponentStore[T]) Get(id EntityID) (T, bool) {
	c, ok := s.data[id]
	return c, ok
}

func (s *ComponentStore[T]) Remove(id EntityID) bool {
	if _, ok := s.data[id]; !ok {
		return false
	}
	delete(s.data, id)
	for _, w := range s.watchers {
		w.MarkRemoved(id)
	}
	return true
}

func (s *ComponentStore[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *ComponentStore[T]) Len() int {
	return len(s.data)
}

// Each visits every entity holding T. Order is unspecified.
func (s *ComponentStore[T]) Each(fn func(EntityID, T)) {
	for id, c := range s.data {
		fn(id, c)
	}
}

func (s *ComponentStore[T]) notify(id EntityID) {
	for _, w := range s.watchers {
		w.Mark(id)
	}
}
