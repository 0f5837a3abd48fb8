package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/l1jgo/ecsindex/internal/config"
	"github.com/l1jgo/ecsindex/internal/data"
	"github.com/l1jgo/ecsindex/internal/scripting"
	"github.com/l1jgo/ecsindex/internal/system"
)

const (
	demoLife   = "life"
	demoShapes = "shapes"
)

// newSim builds the selected demo. The returned close func releases the
// life rule's Lua VM.
func newSim(cfg *config.Config, demo string, tokens int, opts system.Options, log *zap.Logger) (*system.Sim, func(), error) {
	opts.Workers = cfg.Simulation.Workers
	opts.Shards = cfg.Index.DirtyShards
	opts.Log = log

	switch demo {
	case demoShapes:
		sim, err := system.NewShapeSim(tokens, cfg.Simulation.Seed, opts)
		if err != nil {
			return nil, nil, err
		}
		return &sim.Sim, func() {}, nil
	case demoLife:
		pattern, err := data.LoadPattern(cfg.Data.Pattern)
		if err != nil {
			return nil, nil, err
		}
		rule, err := scripting.NewEngine(cfg.Data.ScriptsDir, log)
		if err != nil {
			return nil, nil, fmt.Errorf("scripting: %w", err)
		}
		sim, err := system.NewLifeSim(pattern, rule, opts)
		if err != nil {
			rule.Close()
			return nil, nil, err
		}
		return &sim.Sim, rule.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown demo %q", demo)
}
