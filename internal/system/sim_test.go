package system

import (
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/l1jgo/ecsindex/internal/component"
	"github.com/l1jgo/ecsindex/internal/core/ecs"
	"github.com/l1jgo/ecsindex/internal/data"
	"github.com/l1jgo/ecsindex/internal/scripting"
)

const dt = 100 * time.Millisecond

func pattern(w, h int32, pts ...data.Point) *data.Pattern {
	return &data.Pattern{Name: "test", Width: w, Height: h, Alive: pts}
}

func positions(pts ...data.Point) []component.Position {
	out := make([]component.Position, len(pts))
	for i, p := range pts {
		out[i] = component.Position{X: p.X, Y: p.Y}
	}
	return out
}

func shifted(pts []data.Point, dx, dy int32) []data.Point {
	out := make([]data.Point, len(pts))
	for i, p := range pts {
		out[i] = data.Point{X: p.X + dx, Y: p.Y + dy}
	}
	return out
}

var glider = []data.Point{{X: 1, Y: 0}, {X: 2, Y: 1}, {X: 0, Y: 2}, {X: 1, Y: 2}, {X: 2, Y: 2}}

func TestLifeBlinkerOscillates(t *testing.T) {
	horizontal := []data.Point{{X: 1, Y: 2}, {X: 2, Y: 2}, {X: 3, Y: 2}}
	vertical := []data.Point{{X: 2, Y: 1}, {X: 2, Y: 2}, {X: 2, Y: 3}}

	sim, err := NewLifeSim(pattern(5, 5, horizontal...), Conway{}, Options{Log: zaptest.NewLogger(t)})
	require.NoError(t, err)

	sim.Tick(dt)
	assert.ElementsMatch(t, positions(vertical...), sim.LiveCells())
	sim.Tick(dt)
	assert.ElementsMatch(t, positions(horizontal...), sim.LiveCells())
	assert.Equal(t, []int{3, 3}, sim.Population.History)
}

func TestLifeGliderTravels(t *testing.T) {
	sim, err := NewLifeSim(pattern(16, 16, glider...), Conway{}, Options{Workers: 4, Log: zaptest.NewLogger(t)})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		sim.Tick(dt)
	}
	assert.ElementsMatch(t, positions(shifted(glider, 1, 1)...), sim.LiveCells())
	assert.Equal(t, []int{5, 5, 5, 5}, sim.Population.History)
}

func TestLifeScriptedRuleMatchesConway(t *testing.T) {
	eng, err := scripting.NewEngine("", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer eng.Close()

	sim, err := NewLifeSim(pattern(16, 16, glider...), eng, Options{Log: zaptest.NewLogger(t)})
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		sim.Tick(dt)
	}
	assert.ElementsMatch(t, positions(shifted(glider, 2, 2)...), sim.LiveCells())
}

func TestLifeLonelyCellDies(t *testing.T) {
	sim, err := NewLifeSim(pattern(3, 3, data.Point{X: 1, Y: 1}), Conway{}, Options{})
	require.NoError(t, err)

	sim.Tick(dt)
	assert.Empty(t, sim.LiveCells())
	assert.Equal(t, 9, sim.Alive.Count(component.Dead))
}

func TestLifeIndexesSeededFromExistingCells(t *testing.T) {
	sim, err := NewLifeSim(pattern(4, 4), Conway{}, Options{})
	require.NoError(t, err)
	// 16 cells and 16 states, none indexed before the first pass.
	assert.Equal(t, 32, sim.Registry.SyncAll())

	cell := sim.Grid.Get(component.Position{X: 3, Y: 2})
	require.Len(t, cell, 1)
	c, ok := ecs.Store[component.Cell](sim.World).Get(cell[0])
	require.True(t, ok)
	assert.Equal(t, component.Position{X: 3, Y: 2}, c.Pos)
	assert.Empty(t, sim.Grid.Get(component.Position{X: 4, Y: 0}))
}

func TestLifePlanGolden(t *testing.T) {
	sim, err := NewLifeSim(pattern(3, 3), Conway{}, Options{})
	require.NoError(t, err)
	g := goldie.New(t)
	g.Assert(t, "life_plan", []byte(sim.Runner.Plan().String()))
}

func TestShapePlanGolden(t *testing.T) {
	sim, err := NewShapeSim(8, 1, Options{})
	require.NoError(t, err)
	g := goldie.New(t)
	g.Assert(t, "shape_plan", []byte(sim.Runner.Plan().String()))
}

// scan answers the same questions as the shape index by walking the store.
func scan(world *ecs.World) (byShape map[component.Shape][]ecs.EntityID, stars, total int) {
	scores := ecs.Store[component.Score](world)
	byShape = make(map[component.Shape][]ecs.EntityID)
	ecs.Store[component.Shape](world).Each(func(id ecs.EntityID, s component.Shape) {
		byShape[s] = append(byShape[s], id)
		if s == component.Star {
			sc, _ := scores.Get(id)
			stars++
			total += sc.Val
		}
	})
	return byShape, stars, total
}

func TestShapeSimIndexMatchesScan(t *testing.T) {
	sim, err := NewShapeSim(64, 42, Options{Workers: 4, Shards: 8, Log: zaptest.NewLogger(t)})
	require.NoError(t, err)

	for tick := 0; tick < 20; tick++ {
		sim.Tick(dt)

		want, stars, total := scan(sim.World)
		assert.Equal(t, stars, sim.Score.Stars, "tick %d", tick)
		assert.Equal(t, total, sim.Score.Total, "tick %d", tick)
		for _, s := range allShapes {
			assert.ElementsMatch(t, want[s], sim.ByShape.Get(s), "tick %d shape %s", tick, s)
		}
	}
	assert.Positive(t, sim.Reform.Reformed)
	assert.Positive(t, sim.Purge.Purged)
}
