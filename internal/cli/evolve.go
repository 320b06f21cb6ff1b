package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/me/dfjss/internal/bench"
	"github.com/me/dfjss/internal/gp"
	"github.com/me/dfjss/internal/report"
)

// gpConfig maps the evolve section of the configuration onto the search.
func gpConfig() gp.Config {
	e := cfg.Evolve
	return gp.Config{
		Population:     e.Population,
		Generations:    e.Generations,
		Elite:          e.Elite,
		TournamentSize: e.TournamentSize,
		CrossoverRate:  e.CrossoverRate,
		MutationRate:   e.MutationRate,
		MinDepth:       e.MinDepth,
		MaxDepth:       e.MaxDepth,
		MaxTreeDepth:   e.MaxTreeDepth,
		HallOfFame:     max(e.HallOfFame, 1),
		Workers:        e.Workers,
		Seed:           uint64(e.Seed),
	}
}

func newEvolveCmd() *cobra.Command {
	var (
		testPaths   []string
		outPath     string
		population  int
		generations int
		seed        int64
		workers     int
		maxTime     int
		oneBased    bool
	)

	cmd := &cobra.Command{
		Use:   "evolve <training-instance-file-or-dir>...",
		Short: "Evolve a priority expression by genetic programming",
		Long: `Search for a priority expression that minimizes the mean makespan over the
training instances. The best expression is printed in the form accepted by
'dfjss run --expr'. With --test it is benchmarked against the configured rules.
Interrupting the search keeps the best expression found so far.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			train, err := loadInstances(args, oneBased)
			if err != nil {
				return err
			}

			gcfg := gpConfig()
			flags := cmd.Flags()
			if flags.Changed("population") {
				gcfg.Population = population
			}
			if flags.Changed("generations") {
				gcfg.Generations = generations
			}
			if flags.Changed("seed") {
				gcfg.Seed = uint64(seed)
			}
			if flags.Changed("workers") {
				gcfg.Workers = workers
			}

			ev, err := gp.New(gcfg, train, logger, engineOptions(maxTime)...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			logger.Info("evolution started", "instances", len(train), "population", gcfg.Population,
				"generations", gcfg.Generations, "seed", gcfg.Seed)
			res, err := ev.Evolve(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			if len(res.HallOfFame) == 0 {
				return fmt.Errorf("evolution stopped before any individual was evaluated: %w", err)
			}
			if err != nil {
				logger.Warn("evolution interrupted", "generations", len(res.History))
			}

			best := res.Best.Tree.String()
			printf(cmd, "Best: %s\n", best)
			printf(cmd, "Fitness (mean makespan): %.2f\n", res.Best.Fitness)
			printf(cmd, "Generations: %d, evaluations: %d, time: %s\n",
				len(res.History), res.Evaluations, res.Duration.Round(1e6))
			if len(res.HallOfFame) > 1 {
				printf(cmd, "Hall of fame:\n")
				for i, ind := range res.HallOfFame {
					printf(cmd, "  %2d. %.2f  %s\n", i+1, ind.Fitness, ind.Tree)
				}
			}

			if outPath != "" {
				if err := os.WriteFile(outPath, []byte(best+"\n"), 0o644); err != nil {
					return fmt.Errorf("write expression: %w", err)
				}
				logger.Info("expression written", "path", outPath)
			}

			if len(testPaths) == 0 {
				return nil
			}
			test, err := loadInstances(testPaths, oneBased)
			if err != nil {
				return err
			}
			contenders, err := bench.Rules(cfg.Bench.Rules, uint64(cfg.Bench.Seed))
			if err != nil {
				return err
			}
			evolved, err := bench.Expression("GP", best)
			if err != nil {
				return fmt.Errorf("compile evolved expression: %w", err)
			}
			records, err := bench.Runner{
				Workers: gcfg.Workers,
				Options: engineOptions(maxTime),
				Logger:  logger,
			}.Run(cmd.Context(), test, append(contenders, evolved))
			if err != nil {
				return err
			}
			return report.WriteText(cmd.OutOrStdout(), test, records)
		},
	}

	cmd.Flags().StringSliceVar(&testPaths, "test", nil, "Test instances to benchmark the result on")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the best expression to a file")
	cmd.Flags().IntVar(&population, "population", 0, "Population size (default from config)")
	cmd.Flags().IntVar(&generations, "generations", 0, "Generations (default from config)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (default from config)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent fitness evaluations (default from config)")
	cmd.Flags().IntVar(&maxTime, "max-time", 0, "Clock limit per simulation (default from config)")
	cmd.Flags().BoolVar(&oneBased, "one-based", false, "Machine numbers in text instances start at 1")

	return cmd
}
