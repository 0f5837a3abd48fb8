package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shape int

type recorder struct {
	marked  []EntityID
	removed []EntityID
}

func (r *recorder) Mark(id EntityID)        { r.marked = append(r.marked, id) }
func (r *recorder) MarkRemoved(id EntityID) { r.removed = append(r.removed, id) }

func TestEntityPoolRecyclesWithNewGeneration(t *testing.T) {
	p := NewEntityPool()
	a := p.Create()
	require.False(t, a.IsZero())
	require.True(t, p.Alive(a))
	assert.Equal(t, 1, p.Len())

	require.True(t, p.Destroy(a))
	assert.False(t, p.Alive(a))
	assert.False(t, p.Destroy(a), "stale id must not destroy twice")

	b := p.Create()
	assert.Equal(t, a.Index(), b.Index())
	assert.Equal(t, a.Generation()+1, b.Generation())
	assert.NotEqual(t, a, b)
	assert.False(t, p.Alive(NewEntityID(99, 1)))
}

func TestComponentStoreNotifiesWatchers(t *testing.T) {
	s := NewComponentStore[shape]()
	rec := &recorder{}
	s.Watch(rec)

	id := NewEntityID(0, 1)
	s.Set(id, 3)
	ok := s.Mutate(id, func(v *shape) { *v = 4 })
	require.True(t, ok)
	assert.False(t, s.Mutate(NewEntityID(1, 1), func(*shape) { t.Fatal("called for missing entity") }))

	v, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, shape(4), v)
	assert.Equal(t, []EntityID{id, id}, rec.marked)

	assert.True(t, s.Remove(id))
	assert.False(t, s.Remove(id))
	assert.Equal(t, []EntityID{id}, rec.removed)
	assert.Equal(t, 0, s.Len())
}

func TestWorldStoreIsPerType(t *testing.T) {
	w := NewWorld()
	a := Store[shape](w)
	b := Store[shape](w)
	assert.Same(t, a, b)

	names := Store[string](w)
	e := w.CreateEntity()
	a.Set(e, 1)
	names.Set(e, "e")

	rec := &recorder{}
	a.Watch(rec)
	w.MarkForDestruction(e)
	assert.True(t, a.Has(e), "destruction is deferred")
	assert.Equal(t, 1, w.FlushDestroyQueue())

	assert.False(t, w.Alive(e))
	assert.False(t, a.Has(e))
	assert.False(t, names.Has(e))
	assert.Equal(t, []EntityID{e}, rec.removed)
}
