package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type flipped struct{ ID uint64 }

func TestEventsVisibleAfterSwap(t *testing.T) {
	b := NewBus()
	var got []uint64
	Subscribe(b, func(e flipped) { got = append(got, e.ID) })

	Emit(b, flipped{ID: 1})
	Emit(b, flipped{ID: 2})
	assert.Empty(t, Read[flipped](b))
	assert.Equal(t, 0, b.DispatchAll())

	b.SwapBuffers()
	assert.Equal(t, []flipped{{1}, {2}}, Read[flipped](b))
	assert.Equal(t, 2, b.DispatchAll())
	assert.Equal(t, []uint64{1, 2}, got)

	b.SwapBuffers()
	assert.Empty(t, Read[flipped](b))
}
