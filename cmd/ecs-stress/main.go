package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/plus3/sigecs/ecs"
)

// fixedStep is the simulated time advanced by one tick.
const fixedStep = float32(1.0 / 60.0)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	flagCfg := DefaultConfig()

	cmd := &cobra.Command{
		Use:           "ecs-stress",
		Short:         "Run the engine systems against a random population and report timings",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := DefaultConfig()
			if configPath != "" {
				var err error
				if cfg, err = LoadConfigFile(configPath); err != nil {
					return err
				}
			}
			applyFlags(cmd, &cfg, flagCfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML config file")
	flags.DurationVar(&flagCfg.Duration, "duration", flagCfg.Duration, "The total duration the test should run for.")
	flags.IntVar(&flagCfg.Entities, "entities", flagCfg.Entities, "The initial number of entities to create.")
	flags.Int64Var(&flagCfg.Seed, "seed", flagCfg.Seed, "Seed for the random population.")
	flags.StringVar(&flagCfg.ErrorPolicy, "error-policy", flagCfg.ErrorPolicy, "abort or continue when a system fails.")
	flags.BoolVar(&flagCfg.Stats, "stats", flagCfg.Stats, "Collect per-system timings.")
	flags.StringVar(&flagCfg.Profile, "profile", flagCfg.Profile, "Write a cpu or mem profile to the working directory.")
	flags.BoolVar(&flagCfg.Development, "dev", flagCfg.Development, "Use a development logger.")
	flags.BoolVar(&flagCfg.GCPauseMetrics, "gc-pause-metrics", flagCfg.GCPauseMetrics, "Enable detailed GC pause metrics in the report.")

	return cmd
}

// applyFlags copies every flag the user set explicitly over the loaded config.
func applyFlags(cmd *cobra.Command, cfg *Config, flagCfg Config) {
	flags := cmd.Flags()
	if flags.Changed("duration") {
		cfg.Duration = flagCfg.Duration
	}
	if flags.Changed("entities") {
		cfg.Entities = flagCfg.Entities
	}
	if flags.Changed("seed") {
		cfg.Seed = flagCfg.Seed
	}
	if flags.Changed("error-policy") {
		cfg.ErrorPolicy = flagCfg.ErrorPolicy
	}
	if flags.Changed("stats") {
		cfg.Stats = flagCfg.Stats
	}
	if flags.Changed("profile") {
		cfg.Profile = flagCfg.Profile
	}
	if flags.Changed("dev") {
		cfg.Development = flagCfg.Development
	}
	if flags.Changed("gc-pause-metrics") {
		cfg.GCPauseMetrics = flagCfg.GCPauseMetrics
	}
}

func run(ctx context.Context, cfg Config, out io.Writer) error {
	logger, err := cfg.Logger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	stopProfile := cfg.StartProfile()
	defer stopProfile()

	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	logger.Info("starting ECS stress test", zap.Int("entities", cfg.Entities), zap.Duration("duration", cfg.Duration))

	registry := ecs.NewRegistry(
		ecs.WithLogger(logger),
		ecs.WithErrorPolicy(policy),
		ecs.WithStats(cfg.Stats),
		ecs.WithCapacity(cfg.Entities),
	)
	rng := rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed)))
	RegisterEngineSystems(registry, rng)

	logger.Info("populating store", zap.Int("entities", cfg.Entities))
	if err := Populate(registry, cfg.Entities, rng); err != nil {
		return err
	}
	logger.Info("population complete")

	report := NewReport(cfg)
	report.Start()

	logger.Info("running simulation", zap.Duration("duration", cfg.Duration))
	if err := simulate(ctx, registry, cfg.Duration, report); err != nil {
		return err
	}

	report.Collect(registry)
	logger.Info("simulation finished", zap.Int64("updates", report.TotalUpdates))

	fmt.Fprintln(out, "\n\n--- Stress Test Report ---")
	if err := report.Generate(out); err != nil {
		return err
	}
	fmt.Fprintln(out, "--- End of Report ---")
	return nil
}

// simulate ticks the registry back to back until the duration elapses. Tick
// errors end the run under AbortOnError; otherwise they are counted.
func simulate(ctx context.Context, registry *ecs.Registry, duration time.Duration, report *Report) error {
	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	clock := ecs.NewSingleton[Clock](registry.Store())
	clock.Get().Delta = fixedStep

	startTime := time.Now()
	for ctx.Err() == nil {
		updateStart := time.Now()
		err := registry.RunSystems()
		report.Record(time.Since(updateStart))

		if err != nil {
			report.SystemErrors++
			if registry.ErrorPolicy() == ecs.AbortOnError {
				return err
			}
		}
	}
	report.TotalTime = time.Since(startTime)
	return nil
}
