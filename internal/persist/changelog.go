package persist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	coresys "github.com/l1jgo/ecsindex/internal/core/system"
	"github.com/l1jgo/ecsindex/internal/index"
)

// ChangeEntry is one row of index_changelog. A nil key means the entity had
// no key on that side of the change.
type ChangeEntry struct {
	Tick      int64
	Component string
	EntityID  uint64
	OldKey    *string
	NewKey    *string
}

// ChangeBuffer collects reconciled index changes between flushes. It is the
// registry's change sink. Changes are stamped with the tick counter, which
// the changelog system advances once per tick.
type ChangeBuffer struct {
	mu      sync.Mutex
	tick    int64
	pending []ChangeEntry
}

func NewChangeBuffer() *ChangeBuffer {
	return &ChangeBuffer{pending: make([]ChangeEntry, 0, 256)}
}

// Record implements index.ChangeSink.
func (b *ChangeBuffer) Record(c index.Change) {
	e := ChangeEntry{Component: c.Component, EntityID: uint64(c.Entity)}
	if !c.Added {
		old := c.Old
		e.OldKey = &old
	}
	if !c.Removed {
		next := c.New
		e.NewKey = &next
	}
	b.mu.Lock()
	e.Tick = b.tick
	b.pending = append(b.pending, e)
	b.mu.Unlock()
}

func (b *ChangeBuffer) advance() {
	b.mu.Lock()
	b.tick++
	b.mu.Unlock()
}

// Take empties the buffer and returns what it held.
func (b *ChangeBuffer) Take() []ChangeEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.pending
	b.pending = make([]ChangeEntry, 0, cap(out))
	return out
}

// requeue puts entries that failed to write back in front of newer ones.
func (b *ChangeBuffer) requeue(entries []ChangeEntry) {
	b.mu.Lock()
	b.pending = append(entries, b.pending...)
	b.mu.Unlock()
}

func (b *ChangeBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// ChangeWriter persists a batch of changelog entries.
type ChangeWriter interface {
	WriteChanges(ctx context.Context, entries []ChangeEntry) error
}

// ChangelogRepo writes changelog entries of one simulation run.
type ChangelogRepo struct {
	db    *DB
	runID uuid.UUID
}

func NewChangelogRepo(db *DB, runID uuid.UUID) *ChangelogRepo {
	return &ChangelogRepo{db: db, runID: runID}
}

// WriteChanges bulk-loads entries with COPY.
func (r *ChangelogRepo) WriteChanges(ctx context.Context, entries []ChangeEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([][]any, len(entries))
	for i, e := range entries {
		rows[i] = []any{[16]byte(r.runID), e.Tick, e.Component, int64(e.EntityID), e.OldKey, e.NewKey}
	}
	_, err := r.db.Pool.CopyFrom(ctx,
		pgx.Identifier{"index_changelog"},
		[]string{"run_id", "tick", "component", "entity_id", "old_key", "new_key"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("changelog copy: %w", err)
	}
	return nil
}

// ChangelogSystem flushes the change buffer every interval ticks.
// Phase 5 (Persist).
type ChangelogSystem struct {
	buf       *ChangeBuffer
	writer    ChangeWriter
	log       *zap.Logger
	interval  int
	tickCount int
	timeout   time.Duration
}

func NewChangelogSystem(buf *ChangeBuffer, writer ChangeWriter, log *zap.Logger, intervalTicks int) *ChangelogSystem {
	if intervalTicks <= 0 {
		intervalTicks = 1
	}
	return &ChangelogSystem{
		buf:      buf,
		writer:   writer,
		log:      log,
		interval: intervalTicks,
		timeout:  5 * time.Second,
	}
}

func (s *ChangelogSystem) Name() string { return "changelog" }
func (s *ChangelogSystem) Phase() coresys.Phase { return coresys.PhasePersist }
func (s *ChangelogSystem) Access() []coresys.Access { return nil }

func (s *ChangelogSystem) Update(_ time.Duration) {
	s.buf.advance()
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.Flush(ctx); err != nil {
		s.log.Error("changelog flush failed", zap.Error(err))
	}
}

// Flush writes everything buffered so far. On failure the entries stay
// buffered for the next attempt. Also called on shutdown.
func (s *ChangelogSystem) Flush(ctx context.Context) error {
	entries := s.buf.Take()
	if len(entries) == 0 {
		return nil
	}
	if err := s.writer.WriteChanges(ctx, entries); err != nil {
		s.buf.requeue(entries)
		return err
	}
	s.log.Debug("changelog flushed", zap.Int("entries", len(entries)))
	return nil
}
