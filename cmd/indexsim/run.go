package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/profile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/l1jgo/ecsindex/internal/config"
	"github.com/l1jgo/ecsindex/internal/metrics"
	"github.com/l1jgo/ecsindex/internal/persist"
	"github.com/l1jgo/ecsindex/internal/system"
)

type runOptions struct {
	ticks   int
	profile string
}

func newRunCommand(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a demo on the tick loop until interrupted or out of ticks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("ticks") {
				cfg.Simulation.Ticks = opts.ticks
			}
			switch opts.profile {
			case "":
			case "cpu":
				defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
			case "mem":
				defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
			default:
				return fmt.Errorf("invalid profile %q: must be cpu or mem", opts.profile)
			}
			return run(cfg, root)
		},
	}
	cmd.Flags().IntVar(&opts.ticks, "ticks", 0, "stop after this many ticks (0 = until interrupted)")
	cmd.Flags().StringVar(&opts.profile, "profile", "", "write a cpu or mem profile to the working directory")
	return cmd
}

func run(cfg *config.Config, root *rootOptions) error {
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	var opts system.Options

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		obs, err := metrics.NewPrometheus(reg)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		opts.Observer = obs
		srv := serveMetrics(cfg.Metrics.BindAddress, reg, log)
		defer srv.Close()
	}

	var changelog *persist.ChangelogSystem
	if cfg.Database.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		if err := persist.RunMigrations(ctx, db.Pool); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}

		runID := uuid.New()
		buf := persist.NewChangeBuffer()
		changelog = persist.NewChangelogSystem(buf, persist.NewChangelogRepo(db, runID), log, cfg.Database.ChangelogInterval)
		opts.Sink = buf
		opts.Extra = append(opts.Extra, changelog)
		log.Info("changelog enabled", zap.Stringer("run_id", runID), zap.Int("interval", cfg.Database.ChangelogInterval))
	}

	sim, closeSim, err := newSim(cfg, root.demo, root.tokens, opts, log)
	if err != nil {
		return err
	}
	defer closeSim()
	log.Debug("schedule", zap.Stringer("plan", sim.Runner.Plan()))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownCh)

	ticker := time.NewTicker(cfg.Simulation.TickRate)
	defer ticker.Stop()

	log.Info("simulation started",
		zap.String("demo", root.demo),
		zap.Duration("tick_rate", cfg.Simulation.TickRate),
		zap.Int("workers", cfg.Simulation.Workers),
	)

	ticks := 0
loop:
	for {
		select {
		case <-ticker.C:
			sim.Tick(cfg.Simulation.TickRate)
			ticks++
			if cfg.Simulation.Ticks > 0 && ticks >= cfg.Simulation.Ticks {
				break loop
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			break loop
		}
	}

	if changelog != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := changelog.Flush(ctx); err != nil {
			log.Error("final changelog flush", zap.Error(err))
		}
	}
	logStats(sim, ticks, log)
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", zap.Error(err))
		}
	}()
	log.Info("metrics listening", zap.String("addr", addr))
	return srv
}

func logStats(sim *system.Sim, ticks int, log *zap.Logger) {
	for name, st := range sim.Registry.Stats() {
		log.Info("index stats",
			zap.String("component", name),
			zap.Int("ticks", ticks),
			zap.Uint64("passes", st.Passes),
			zap.Uint64("skipped", st.Skipped),
			zap.Uint64("reconciled", st.Reconciled),
			zap.Uint64("unchanged", st.Unchanged),
			zap.Uint64("purged", st.Purged),
			zap.Uint64("forward_ops", st.ForwardOps),
			zap.Uint64("reverse_ops", st.ReverseOps),
		)
	}
}
