package system

import (
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/ecsindex/internal/component"
	"github.com/l1jgo/ecsindex/internal/core/ecs"
	"github.com/l1jgo/ecsindex/internal/core/event"
	coresys "github.com/l1jgo/ecsindex/internal/core/system"
	"github.com/l1jgo/ecsindex/internal/data"
	"github.com/l1jgo/ecsindex/internal/index"
	"github.com/l1jgo/ecsindex/internal/metrics"
)

// Options carries the wiring shared by every simulation.
type Options struct {
	Workers  int
	Shards   int
	Log      *zap.Logger
	Observer metrics.Observer
	Sink     index.ChangeSink

	// Extra systems registered after the simulation's own, such as the
	// changelog flusher.
	Extra []coresys.System
}

func (o Options) logger() *zap.Logger {
	if o.Log == nil {
		return zap.NewNop()
	}
	return o.Log
}

func (o Options) registry(world *ecs.World) *index.Registry {
	opts := []index.Option{index.WithLogger(o.logger())}
	if o.Shards > 0 {
		opts = append(opts, index.WithShards(o.Shards))
	}
	if o.Observer != nil {
		opts = append(opts, index.WithObserver(o.Observer))
	}
	if o.Sink != nil {
		opts = append(opts, index.WithChangeSink(o.Sink))
	}
	return index.NewRegistry(world, opts...)
}

// Sim is a world with its index registry and a built runner.
type Sim struct {
	World    *ecs.World
	Registry *index.Registry
	Runner   *coresys.Runner
}

// Tick runs one full tick.
func (s *Sim) Tick(dt time.Duration) {
	s.Runner.Tick(dt)
}

func build(sim *Sim, opts Options, systems ...coresys.System) error {
	runner := coresys.NewRunner(coresys.WithWorkers(opts.Workers), coresys.WithLogger(opts.logger()))
	for _, s := range systems {
		runner.Register(s)
	}
	for _, s := range opts.Extra {
		runner.Register(s)
	}
	runner.AddPlanner(sim.Registry)
	if err := runner.Build(); err != nil {
		return err
	}
	sim.Runner = runner
	return nil
}

// LifeSim is Conway's Game of Life over a grid of cell entities. Cells are
// indexed by position and by state, so each generation only visits live
// cells and their neighbours.
type LifeSim struct {
	Sim
	Width      int32
	Height     int32
	Grid       *index.Ref[component.Position]
	Alive      *index.Ref[component.Life]
	Population *PopulationSystem
}

// NewLifeSim spawns one entity per grid cell, live where the pattern says so.
func NewLifeSim(p *data.Pattern, rule Rule, opts Options) (*LifeSim, error) {
	log := opts.logger()
	world := ecs.NewWorld()
	reg := opts.registry(world)

	cells := ecs.Store[component.Cell](world)
	lives := ecs.Store[component.Life](world)
	live := make(map[component.Position]bool, len(p.Alive))
	for _, pt := range p.Alive {
		live[component.Position{X: pt.X, Y: pt.Y}] = true
	}
	for x := int32(0); x < p.Width; x++ {
		for y := int32(0); y < p.Height; y++ {
			pos := component.Position{X: x, Y: y}
			id := world.CreateEntity()
			cells.Set(id, component.Cell{Pos: pos})
			state := component.Dead
			if live[pos] {
				state = component.Alive
			}
			lives.Set(id, state)
		}
	}

	// Created after the cells exist: the first pass seeds both indexes.
	index.TrackBy(reg, func(c component.Cell) component.Position { return c.Pos })
	index.Track[component.Life](reg)
	grid, err := index.RegisterConsumer[component.Cell, component.Position](reg)
	if err != nil {
		return nil, err
	}
	alive, err := index.RegisterConsumer[component.Life, component.Life](reg)
	if err != nil {
		return nil, err
	}

	bus := event.NewBus()
	ApplyLifeEvents(bus, world)
	pop := NewPopulationSystem(alive, log)

	sim := &LifeSim{
		Sim:        Sim{World: world, Registry: reg},
		Width:      p.Width,
		Height:     p.Height,
		Grid:       grid,
		Alive:      alive,
		Population: pop,
	}
	err = build(&sim.Sim, opts,
		NewLifeSystem(world, p.Width, p.Height, grid, alive, rule, bus, log),
		NewEventSystem(bus, coresys.PhasePostUpdate, coresys.Write[component.Life]()),
		pop,
		NewCleanupSystem(world),
	)
	if err != nil {
		return nil, fmt.Errorf("life sim: %w", err)
	}
	log.Info("life sim ready",
		zap.String("pattern", p.Name),
		zap.Int32("width", p.Width),
		zap.Int32("height", p.Height),
		zap.Int("alive", p.Count()),
	)
	return sim, nil
}

// LiveCells returns the positions of all live cells, read through the
// indexes.
func (s *LifeSim) LiveCells() []component.Position {
	cells := ecs.Store[component.Cell](s.World)
	var out []component.Position
	s.Alive.Each(component.Alive, func(id ecs.EntityID) bool {
		if c, ok := cells.Get(id); ok {
			out = append(out, c.Pos)
		}
		return true
	})
	return out
}

// ShapeSim is a pool of scored tokens. Each tick a few tokens change shape,
// moons become stars, circles are destroyed, the pool is refilled, and the
// stars are scored.
type ShapeSim struct {
	Sim
	ByShape *index.Ref[component.Shape]
	Reform  *ReformSystem
	Purge   *PurgeSystem
	Score   *StarScoreSystem
}

// NewShapeSim spawns tokens tokens cycling through the shapes, with score i
// for the i-th token.
func NewShapeSim(tokens int, seed int64, opts Options) (*ShapeSim, error) {
	log := opts.logger()
	world := ecs.NewWorld()
	reg := opts.registry(world)
	rng := rand.New(rand.NewSource(seed))

	index.Track[component.Shape](reg)
	for i := 0; i < tokens; i++ {
		SpawnToken(world, allShapes[i%len(allShapes)], i)
	}
	byShape, err := index.RegisterConsumer[component.Shape, component.Shape](reg)
	if err != nil {
		return nil, err
	}

	sim := &ShapeSim{
		Sim:     Sim{World: world, Registry: reg},
		ByShape: byShape,
		Reform:  NewReformSystem(world, byShape, component.Moon, component.Star),
		Purge:   NewPurgeSystem(world, byShape, component.Circle),
		Score:   NewStarScoreSystem(world, byShape, log),
	}
	err = build(&sim.Sim, opts,
		NewShuffleSystem(world, rng, max(1, tokens/8)),
		sim.Reform,
		sim.Purge,
		NewSpawnSystem(world, rng, tokens),
		sim.Score,
		NewCleanupSystem(world),
	)
	if err != nil {
		return nil, fmt.Errorf("shape sim: %w", err)
	}
	log.Info("shape sim ready", zap.Int("tokens", tokens), zap.Int64("seed", seed))
	return sim, nil
}
