package system

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/ecsindex/internal/component"
	"github.com/l1jgo/ecsindex/internal/core/ecs"
	coresys "github.com/l1jgo/ecsindex/internal/core/system"
	"github.com/l1jgo/ecsindex/internal/index"
)

var allShapes = [...]component.Shape{component.Square, component.Star, component.Circle, component.Moon}

// ShuffleSystem reassigns random shapes to a few tokens each tick.
// Phase 0 (Input).
type ShuffleSystem struct {
	shapes *ecs.ComponentStore[component.Shape]
	rng    *rand.Rand
	n      int
	ids    []ecs.EntityID
}

func NewShuffleSystem(world *ecs.World, rng *rand.Rand, perTick int) *ShuffleSystem {
	return &ShuffleSystem{shapes: ecs.Store[component.Shape](world), rng: rng, n: perTick}
}

func (s *ShuffleSystem) Name() string { return "shuffle" }
func (s *ShuffleSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *ShuffleSystem) Access() []coresys.Access {
	return []coresys.Access{coresys.Write[component.Shape]()}
}

func (s *ShuffleSystem) Update(_ time.Duration) {
	s.ids = s.ids[:0]
	s.shapes.Each(func(id ecs.EntityID, _ component.Shape) {
		s.ids = append(s.ids, id)
	})
	if len(s.ids) == 0 {
		return
	}
	for i := 0; i < s.n; i++ {
		id := s.ids[s.rng.Intn(len(s.ids))]
		s.shapes.Set(id, allShapes[s.rng.Intn(len(allShapes))])
	}
}

// ReformSystem turns every token of one shape into another. It both reads
// the shape index and writes shapes. Phase 2 (Update).
type ReformSystem struct {
	from, to component.Shape
	byShape  *index.Ref[component.Shape]
	shapes   *ecs.ComponentStore[component.Shape]
	Reformed int
}

func NewReformSystem(world *ecs.World, byShape *index.Ref[component.Shape], from, to component.Shape) *ReformSystem {
	return &ReformSystem{from: from, to: to, byShape: byShape, shapes: ecs.Store[component.Shape](world)}
}

func (s *ReformSystem) Name() string { return "reform" }
func (s *ReformSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *ReformSystem) Access() []coresys.Access {
	return append(s.byShape.Access(), coresys.Write[component.Shape]())
}

func (s *ReformSystem) Update(_ time.Duration) {
	// Get copies the bucket, so writing while walking it is safe.
	for _, id := range s.byShape.Get(s.from) {
		s.shapes.Set(id, s.to)
		s.Reformed++
	}
}

// PurgeSystem queues every token of one shape for destruction.
// Phase 2 (Update).
type PurgeSystem struct {
	world   *ecs.World
	shape   component.Shape
	byShape *index.Ref[component.Shape]
	Purged  int
}

func NewPurgeSystem(world *ecs.World, byShape *index.Ref[component.Shape], shape component.Shape) *PurgeSystem {
	return &PurgeSystem{world: world, shape: shape, byShape: byShape}
}

func (s *PurgeSystem) Name() string { return "purge" }
func (s *PurgeSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }
func (s *PurgeSystem) Access() []coresys.Access { return s.byShape.Access() }

func (s *PurgeSystem) Update(_ time.Duration) {
	s.byShape.Each(s.shape, func(id ecs.EntityID) bool {
		s.world.MarkForDestruction(id)
		s.Purged++
		return true
	})
}

// SpawnSystem tops the token population back up. It creates entities, so it
// declares no access and runs alone. Phase 3 (PostUpdate).
type SpawnSystem struct {
	world  *ecs.World
	shapes *ecs.ComponentStore[component.Shape]
	scores *ecs.ComponentStore[component.Score]
	rng    *rand.Rand
	target int
}

func NewSpawnSystem(world *ecs.World, rng *rand.Rand, target int) *SpawnSystem {
	return &SpawnSystem{
		world:  world,
		shapes: ecs.Store[component.Shape](world),
		scores: ecs.Store[component.Score](world),
		rng:    rng,
		target: target,
	}
}

func (s *SpawnSystem) Name() string { return "spawn" }
func (s *SpawnSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *SpawnSystem) Update(_ time.Duration) {
	for s.shapes.Len() < s.target {
		SpawnToken(s.world, allShapes[s.rng.Intn(len(allShapes))], s.rng.Intn(10))
	}
}

// SpawnToken creates a token entity.
func SpawnToken(world *ecs.World, shape component.Shape, score int) ecs.EntityID {
	id := world.CreateEntity()
	ecs.Store[component.Shape](world).Set(id, shape)
	ecs.Store[component.Score](world).Set(id, component.Score{Val: score})
	return id
}

// StarScoreSystem sums the scores of all stars. Phase 4 (Output).
type StarScoreSystem struct {
	byShape *index.Ref[component.Shape]
	scores  *ecs.ComponentStore[component.Score]
	log     *zap.Logger
	Stars   int
	Total   int
}

func NewStarScoreSystem(world *ecs.World, byShape *index.Ref[component.Shape], log *zap.Logger) *StarScoreSystem {
	return &StarScoreSystem{byShape: byShape, scores: ecs.Store[component.Score](world), log: log}
}

func (s *StarScoreSystem) Name() string { return "star_score" }
func (s *StarScoreSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *StarScoreSystem) Access() []coresys.Access {
	return append(s.byShape.Access(), coresys.Read[component.Score]())
}

func (s *StarScoreSystem) Update(_ time.Duration) {
	s.Stars, s.Total = 0, 0
	s.byShape.Each(component.Star, func(id ecs.EntityID) bool {
		sc, _ := s.scores.Get(id)
		s.Stars++
		s.Total += sc.Val
		return true
	})
	s.log.Info("stars", zap.Int("count", s.Stars), zap.Int("score", s.Total))
}
