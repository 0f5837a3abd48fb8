package system

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Planner takes part in Build. Plan may add units to the phase-ordered unit
// list (it must keep the list phase-ordered); Verify checks the levelized
// result. Either one failing fails Build.
type Planner interface {
	Plan(units []Unit) ([]Unit, error)
	Verify(plan *Plan) error
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers caps how many units of one batch run at the same time.
// Zero or less means no cap.
func WithWorkers(n int) Option {
	return func(r *Runner) { r.workers = n }
}

func WithLogger(log *zap.Logger) Option {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

// Runner executes systems in phase order each tick. Build freezes the set of
// systems into a Plan; Tick runs it.
type Runner struct {
	systems  []System
	planners []Planner
	units    []Unit
	plan     *Plan
	workers  int
	log      *zap.Logger
}

func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		systems: make([]System, 0, 16),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.plan = nil
}

// AddPlanner attaches p to every subsequent Build.
func (r *Runner) AddPlanner(p Planner) {
	r.planners = append(r.planners, p)
	r.plan = nil
}

// Build resolves access declarations, lets planners insert their units,
// levelizes the result into batches and lets planners verify it.
func (r *Runner) Build() error {
	units := make([]Unit, 0, len(r.systems))
	for _, s := range r.systems {
		units = append(units, NewUnit(s))
	}
	sort.SliceStable(units, func(i, j int) bool {
		return units[i].Phase < units[j].Phase
	})

	for _, p := range r.planners {
		var err error
		if units, err = p.Plan(units); err != nil {
			r.log.Error("build schedule", zap.Error(err))
			return fmt.Errorf("plan: %w", err)
		}
		if !sort.SliceIsSorted(units, func(i, j int) bool { return units[i].Phase < units[j].Phase }) {
			return fmt.Errorf("plan: planner %T broke phase order", p)
		}
	}

	plan := levelize(units)
	for _, p := range r.planners {
		if err := p.Verify(plan); err != nil {
			r.log.Error("verify schedule", zap.Error(err))
			return fmt.Errorf("verify: %w", err)
		}
	}

	r.units = units
	r.plan = plan
	r.log.Debug("schedule built",
		zap.Int("systems", len(r.systems)),
		zap.Int("units", len(units)),
		zap.Int("batches", len(plan.Batches)),
	)
	return nil
}

// Plan returns the plan from the last successful Build, or nil.
func (r *Runner) Plan() *Plan { return r.plan }

func (r *Runner) Tick(dt time.Duration) {
	for _, b := range r.mustPlan().Batches {
		r.runBatch(b, dt)
	}
}

// TickPhase runs only the batches of one phase. Useful for driving input at
// a higher rate than the rest of the simulation.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	for _, b := range r.mustPlan().Batches {
		if b.Phase == phase {
			r.runBatch(b, dt)
		}
	}
}

func (r *Runner) mustPlan() *Plan {
	if r.plan == nil {
		panic("system: Tick called before a successful Build")
	}
	return r.plan
}

func (r *Runner) runBatch(b Batch, dt time.Duration) {
	if len(b.Units) == 1 {
		b.Units[0].System.Update(dt)
		return
	}
	var g errgroup.Group
	if r.workers > 0 {
		g.SetLimit(r.workers)
	}
	for _, u := range b.Units {
		s := u.System
		g.Go(func() error {
			s.Update(dt)
			return nil
		})
	}
	_ = g.Wait()
}
