package ecs

import "reflect"

// Registry tracks every component store by type and supports bulk cleanup on
// entity destroy.
type Registry struct {
	stores []Removable
	byType map[reflect.Type]Removable
}

func NewRegistry() *Registry {
	return &Registry{
		stores: make([]Removable, 0, 16),
		byType: make(map[reflect.Type]Removable, 16),
	}
}

// Register adds a component store under type t. A second store for the same
// type replaces nothing and is ignored.
func (r *Registry) Register(t reflect.Type, store Removable) {
	if _, ok := r.byType[t]; ok {
		return
	}
	r.byType[t] = store
	r.stores = append(r.stores, store)
}

func (r *Registry) Lookup(t reflect.Type) (Removable, bool) {
	s, ok := r.byType[t]
	return s, ok
}

// RemoveAll clears the given entity from every registered component store.
func (r *Registry) RemoveAll(id EntityID) {
	for _, s := range r.stores {
		s.Remove(id)
	}
}
