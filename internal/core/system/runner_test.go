package system

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type position struct{ X, Y int }
type velocity struct{ X, Y int }
type health int

type stub struct {
	name   string
	phase  Phase
	access []Access
	run    func()
}

func (s *stub) Name() string { return s.name }
func (s *stub) Phase() Phase { return s.phase }
func (s *stub) Access() []Access { return s.access }
func (s *stub) Update(time.Duration) {
	if s.run != nil {
		s.run()
	}
}

// opaque declares no access and so runs alone.
type opaque struct{ phase Phase }

func (o opaque) Phase() Phase { return o.phase }
func (o opaque) Update(time.Duration) {}

func TestLevelizeSeparatesConflicts(t *testing.T) {
	r := NewRunner()
	r.Register(&stub{name: "move", phase: PhaseUpdate, access: []Access{Read[velocity](), Write[position]()}})
	r.Register(&stub{name: "heal", phase: PhaseUpdate, access: []Access{Write[health]()}})
	r.Register(&stub{name: "render", phase: PhaseOutput, access: []Access{Read[position]()}})
	r.Register(&stub{name: "collide", phase: PhaseUpdate, access: []Access{Read[position]()}})
	r.Register(&stub{name: "steer", phase: PhaseUpdate, access: []Access{Write[velocity]()}})
	r.Register(&stub{name: "input", phase: PhaseInput, access: []Access{Write[velocity]()}})
	r.Register(opaque{phase: PhaseCleanup})
	require.NoError(t, r.Build())

	g := goldie.New(t)
	g.Assert(t, "plan", []byte(r.Plan().String()))
}

func TestTickRunsPhasesInOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(name string) func() {
		return func() {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}

	r := NewRunner(WithWorkers(2))
	r.Register(&stub{name: "cleanup", phase: PhaseCleanup, run: record("cleanup")})
	r.Register(&stub{name: "update", phase: PhaseUpdate, run: record("update")})
	r.Register(&stub{name: "input", phase: PhaseInput, run: record("input")})
	require.NoError(t, r.Build())

	r.Tick(time.Millisecond)
	assert.Equal(t, []string{"input", "update", "cleanup"}, order)

	order = nil
	r.TickPhase(PhaseUpdate, time.Millisecond)
	assert.Equal(t, []string{"update"}, order)
}

func TestBatchRunsReadersConcurrently(t *testing.T) {
	const readers = 4
	var inside atomic.Int32
	var peak atomic.Int32
	var wg sync.WaitGroup
	wg.Add(readers)

	r := NewRunner()
	for i := 0; i < readers; i++ {
		r.Register(&stub{
			name:   "reader",
			phase:  PhaseUpdate,
			access: []Access{Read[position]()},
			run: func() {
				n := inside.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				// every reader waits for the others, which only works
				// if they all run at once
				wg.Done()
				wg.Wait()
				inside.Add(-1)
			},
		})
	}
	require.NoError(t, r.Build())
	require.Len(t, r.Plan().Batches, 1)

	r.Tick(0)
	assert.Equal(t, int32(readers), peak.Load())
}

type failingPlanner struct{ err error }

func (f failingPlanner) Plan(u []Unit) ([]Unit, error) { return u, f.err }
func (f failingPlanner) Verify(*Plan) error { return nil }

func TestBuildFailsOnPlannerError(t *testing.T) {
	boom := errors.New("boom")
	r := NewRunner()
	r.Register(opaque{})
	r.AddPlanner(failingPlanner{err: boom})

	err := r.Build()
	require.ErrorIs(t, err, boom)
	assert.Nil(t, r.Plan())
	assert.Panics(t, func() { r.Tick(0) })
}

func TestUnitTouches(t *testing.T) {
	u := NewUnit(&stub{access: []Access{Read[position](), Write[position]()}})
	touched, write := u.Touches(ComponentOf(Read[position]().Resource.Type))
	assert.True(t, touched)
	assert.True(t, write)

	touched, _ = u.Touches(Read[health]().Resource)
	assert.False(t, touched)
	assert.Equal(t, "W Component[system.position]", Write[position]().String())
}
