package ecs

import "reflect"

// World is the top-level ECS container. It owns the entity pool, the
// component registry, and a deferred destruction queue flushed in the
// Cleanup phase.
type World struct {
	pool         *EntityPool
	registry     *Registry
	destroyQueue []EntityID
}

func NewWorld() *World {
	return &World{
		pool:         NewEntityPool(),
		registry:     NewRegistry(),
		destroyQueue: make([]EntityID, 0, 64),
	}
}

func (w *World) Pool() *EntityPool   { return w.pool }
func (w *World) Registry() *Registry { return w.registry }

func (w *World) CreateEntity() EntityID {
	return w.pool.Create()
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// Store returns the world's store for T, creating and registering it on
// first use. Call during setup; the lookup is not synchronized.
func Store[T any](w *World) *ComponentStore[T] {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if s, ok := w.registry.Lookup(t); ok {
		return s.(*ComponentStore[T])
	}
	s := NewComponentStore[T]()
	w.registry.Register(t, s)
	return s
}

// MarkForDestruction queues an entity for end-of-tick cleanup.
func (w *World) MarkForDestruction(id EntityID) {
	w.destroyQueue = append(w.destroyQueue, id)
}

// Destroy removes the entity's components right away. Store watchers see
// one MarkRemoved per component the entity held.
func (w *World) Destroy(id EntityID) {
	if !w.pool.Alive(id) {
		return
	}
	w.registry.RemoveAll(id)
	w.pool.Destroy(id)
}

// FlushDestroyQueue destroys all queued entities and clears their components.
func (w *World) FlushDestroyQueue() int {
	n := len(w.destroyQueue)
	for _, id := range w.destroyQueue {
		w.Destroy(id)
	}
	w.destroyQueue = w.destroyQueue[:0]
	return n
}
