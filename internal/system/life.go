package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/ecsindex/internal/component"
	"github.com/l1jgo/ecsindex/internal/core/ecs"
	"github.com/l1jgo/ecsindex/internal/core/event"
	coresys "github.com/l1jgo/ecsindex/internal/core/system"
	"github.com/l1jgo/ecsindex/internal/index"
)

// Rule decides a cell's next state from its current state and the number of
// live neighbours.
type Rule interface {
	NextState(alive bool, neighbours int) bool
}

// Conway is B3/S23 in Go, for callers that do not load scripts.
type Conway struct{}

func (Conway) NextState(alive bool, n int) bool {
	return n == 3 || (alive && n == 2)
}

// LifeEvent asks for a cell's state to change.
type LifeEvent struct {
	Entity ecs.EntityID
	State  component.Life
}

// LifeSystem computes the next generation. It only visits live cells and
// their neighbours: live cells come from the life index, neighbours from the
// position index. Changes go out as LifeEvents. Phase 2 (Update).
type LifeSystem struct {
	width  int32
	height int32
	cells  *ecs.ComponentStore[component.Cell]
	lives  *ecs.ComponentStore[component.Life]
	grid   *index.Ref[component.Position]
	alive  *index.Ref[component.Life]
	rule   Rule
	bus    *event.Bus
	log    *zap.Logger
}

func NewLifeSystem(world *ecs.World, width, height int32, grid *index.Ref[component.Position], alive *index.Ref[component.Life], rule Rule, bus *event.Bus, log *zap.Logger) *LifeSystem {
	return &LifeSystem{
		width:  width,
		height: height,
		cells:  ecs.Store[component.Cell](world),
		lives:  ecs.Store[component.Life](world),
		grid:   grid,
		alive:  alive,
		rule:   rule,
		bus:    bus,
		log:    log,
	}
}

func (s *LifeSystem) Name() string { return "life" }
func (s *LifeSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *LifeSystem) Access() []coresys.Access {
	return append(s.grid.Access(), s.alive.Access()...)
}

func (s *LifeSystem) Update(_ time.Duration) {
	candidates := make(map[ecs.EntityID]component.Position)
	s.alive.Each(component.Alive, func(id ecs.EntityID) bool {
		c, ok := s.cells.Get(id)
		if !ok {
			return true
		}
		candidates[id] = c.Pos
		for _, n := range c.Pos.Neighbours(s.width, s.height) {
			s.grid.Each(n, func(nid ecs.EntityID) bool {
				candidates[nid] = n
				return true
			})
		}
		return true
	})

	changed := 0
	for id, pos := range candidates {
		state, _ := s.lives.Get(id)
		alive := state == component.Alive
		next := s.rule.NextState(alive, s.liveNeighbours(pos))
		if next == alive {
			continue
		}
		ev := LifeEvent{Entity: id, State: component.Dead}
		if next {
			ev.State = component.Alive
		}
		event.Emit(s.bus, ev)
		changed++
	}
	s.log.Debug("generation computed",
		zap.Int("candidates", len(candidates)),
		zap.Int("changed", changed),
	)
}

func (s *LifeSystem) liveNeighbours(p component.Position) int {
	n := 0
	for _, np := range p.Neighbours(s.width, s.height) {
		s.grid.Each(np, func(id ecs.EntityID) bool {
			if state, _ := s.lives.Get(id); state == component.Alive {
				n++
			}
			return true
		})
	}
	return n
}

// ApplyLifeEvents subscribes the handler that writes LifeEvents into the
// life store. Run it from an EventSystem that declares Write[Life].
func ApplyLifeEvents(bus *event.Bus, world *ecs.World) {
	lives := ecs.Store[component.Life](world)
	event.Subscribe(bus, func(e LifeEvent) {
		lives.Set(e.Entity, e.State)
	})
}

// PopulationSystem records the live cell count every tick. Phase 4 (Output).
type PopulationSystem struct {
	alive   *index.Ref[component.Life]
	log     *zap.Logger
	History []int
}

func NewPopulationSystem(alive *index.Ref[component.Life], log *zap.Logger) *PopulationSystem {
	return &PopulationSystem{alive: alive, log: log}
}

func (s *PopulationSystem) Name() string { return "population" }
func (s *PopulationSystem) Phase() coresys.Phase { return coresys.PhaseOutput }
func (s *PopulationSystem) Access() []coresys.Access { return s.alive.Access() }

func (s *PopulationSystem) Update(_ time.Duration) {
	n := s.alive.Count(component.Alive)
	s.History = append(s.History, n)
	s.log.Info("population", zap.Int("generation", len(s.History)), zap.Int("alive", n))
}
