package persist

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/l1jgo/ecsindex/internal/core/ecs"
	"github.com/l1jgo/ecsindex/internal/index"
)

type fakeWriter struct {
	batches [][]ChangeEntry
	err     error
}

func (f *fakeWriter) WriteChanges(_ context.Context, entries []ChangeEntry) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, entries)
	return nil
}

func str(s string) *string { return &s }

func TestChangeBufferRecordsKeys(t *testing.T) {
	b := NewChangeBuffer()
	id := ecs.NewEntityID(3, 1)
	b.Record(index.Change{Component: "shape", Entity: id, New: "star", Added: true})
	b.advance()
	b.Record(index.Change{Component: "shape", Entity: id, Old: "star", New: "moon"})
	b.Record(index.Change{Component: "shape", Entity: id, Old: "moon", Removed: true})

	got := b.Take()
	require.Len(t, got, 3)
	assert.Equal(t, ChangeEntry{Tick: 0, Component: "shape", EntityID: uint64(id), NewKey: str("star")}, got[0])
	assert.Equal(t, ChangeEntry{Tick: 1, Component: "shape", EntityID: uint64(id), OldKey: str("star"), NewKey: str("moon")}, got[1])
	assert.Nil(t, got[2].NewKey)
	assert.Equal(t, 0, b.Len())
}

func TestChangelogSystemFlushesOnInterval(t *testing.T) {
	b := NewChangeBuffer()
	w := &fakeWriter{}
	s := NewChangelogSystem(b, w, zaptest.NewLogger(t), 2)

	b.Record(index.Change{Component: "life", Entity: 1, New: "alive", Added: true})
	s.Update(0)
	assert.Empty(t, w.batches)
	s.Update(0)
	require.Len(t, w.batches, 1)
	assert.Len(t, w.batches[0], 1)

	s.Update(0)
	s.Update(0)
	assert.Len(t, w.batches, 1, "nothing buffered, nothing written")
}

func TestChangelogSystemKeepsEntriesOnFailure(t *testing.T) {
	b := NewChangeBuffer()
	w := &fakeWriter{err: errors.New("db down")}
	s := NewChangelogSystem(b, w, zaptest.NewLogger(t), 1)

	b.Record(index.Change{Component: "life", Entity: 1, New: "alive", Added: true})
	s.Update(0)
	assert.Equal(t, 1, b.Len())

	b.Record(index.Change{Component: "life", Entity: 2, New: "alive", Added: true})
	w.err = nil
	require.NoError(t, s.Flush(context.Background()))
	require.Len(t, w.batches, 1)
	require.Len(t, w.batches[0], 2)
	assert.Equal(t, uint64(1), w.batches[0][0].EntityID, "failed entries go first")
}
