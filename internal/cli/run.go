package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/dfjss/internal/bench"
	"github.com/me/dfjss/internal/parser"
	"github.com/me/dfjss/internal/report"
	"github.com/me/dfjss/internal/simulation"
	"github.com/me/dfjss/internal/store"
	"github.com/me/dfjss/pkg/model"
)

type scorerFlags struct {
	rule       string
	expression string
	seed       uint64
	maxTime    int
}

func (f *scorerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.rule, "rule", "r", "", "Dispatching rule (see 'dfjss rules')")
	cmd.Flags().StringVarP(&f.expression, "expr", "e", "", "Priority expression, lower scores dispatch first")
	cmd.Flags().Uint64Var(&f.seed, "seed", 1, "Seed for the Random rule")
	cmd.Flags().IntVar(&f.maxTime, "max-time", 0, "Clock limit (default from config)")
	cmd.MarkFlagsMutuallyExclusive("rule", "expr")
	cmd.MarkFlagsOneRequired("rule", "expr")
}

func parserFor(oneBased bool) *parser.Parser {
	if oneBased {
		return parser.New(logger, parser.WithOneBasedMachines())
	}
	return parser.New(logger)
}

func newRunCmd() *cobra.Command {
	var (
		sf       scorerFlags
		gantt    bool
		width    int
		showOps  bool
		asJSON   bool
		save     bool
		oneBased bool
	)

	cmd := &cobra.Command{
		Use:   "run <instance>",
		Short: "Simulate one instance under a rule or expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := parserFor(oneBased).LoadFile(args[0])
			if err != nil {
				return err
			}

			out, err := simulation.Run(cmd.Context(), simulation.Request{
				Instance:   inst,
				Rule:       sf.rule,
				Expression: sf.expression,
				Seed:       sf.seed,
			}, engineOptions(sf.maxTime)...)
			if err != nil {
				return err
			}
			run := out.Record()

			if save {
				if err := saveRun(cmd.Context(), run); err != nil {
					return err
				}
				logger.Info("run saved", "id", run.ID, "db", cfg.Store.Path)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(run)
			}

			w := cmd.OutOrStdout()
			printf(cmd, "=== Instance: %s (jobs=%d, machines=%d) ===\n", inst.Name, inst.JobCount(), inst.Machines)
			printf(cmd, "%s\n", report.Line(bench.Record{
				Scorer:   out.Scorer,
				Instance: inst.Name,
				Makespan: out.Result.Makespan,
				Capped:   out.Result.Capped,
				Metrics:  out.Metrics,
				Elapsed:  out.Elapsed,
			}))
			if out.Result.Diagnostic != "" {
				printf(cmd, "  %s\n", out.Result.Diagnostic)
			}
			printf(cmd, "  utilization=%.2f preemptions=%d cancelled=%v ticks=%d\n",
				out.Metrics.Utilization, out.Result.Preemptions, out.Result.Cancelled, out.Result.Ticks)
			if n := len(out.Result.Dropped); n > 0 {
				printf(cmd, "  %d ETPC constraint(s) name operations that never exist and were ignored\n", n)
			}
			if save {
				printf(cmd, "  run: %s\n", run.ID)
			}
			if showOps {
				printf(cmd, "\n")
				if err := report.WriteSchedule(w, out.Result.Schedule); err != nil {
					return err
				}
			}
			if gantt {
				printf(cmd, "\n")
				return report.Gantt(w, inst, out.Result, width)
			}
			return nil
		},
	}

	sf.register(cmd)
	cmd.Flags().BoolVar(&gantt, "gantt", false, "Draw a text Gantt chart")
	cmd.Flags().IntVar(&width, "width", 100, "Gantt chart width in columns")
	cmd.Flags().BoolVar(&showOps, "schedule", false, "List every completed operation")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the run as JSON")
	cmd.Flags().BoolVar(&save, "save", false, "Persist the run in the local database")
	cmd.Flags().BoolVar(&oneBased, "one-based", false, "Machine numbers in text instances start at 1")

	return cmd
}

// openStore opens and migrates the configured database.
func openStore(ctx context.Context) (*store.SQLiteStore, error) {
	st, err := store.NewSQLiteStore(cfg.Store.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return st, nil
}

func saveRun(ctx context.Context, run *model.Run) error {
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.CreateRun(ctx, run)
}
