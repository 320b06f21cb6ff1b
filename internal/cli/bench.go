package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/me/dfjss/internal/bench"
	"github.com/me/dfjss/internal/report"
	"github.com/me/dfjss/pkg/model"
)

func newBenchCmd() *cobra.Command {
	var (
		ruleNames   []string
		expressions []string
		workers     int
		seed        uint64
		maxTime     int
		format      string
		outPath     string
		oneBased    bool
	)

	cmd := &cobra.Command{
		Use:   "bench <instance-file-or-dir>...",
		Short: "Evaluate dispatching rules over a set of instances",
		Long: `Simulate every rule and expression on every instance and report makespan,
average machine idle time and average job wait per run, then averages per rule.

Expressions are given as NAME=EXPRESSION, for example --expr "slack=add(PT, RPT)".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := reportFormats[format]; !ok {
				return fmt.Errorf("unknown report format %q (want text, csv or summary-csv)", format)
			}
			instances, err := loadInstances(args, oneBased)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("rules") {
				ruleNames = cfg.Bench.Rules
			}
			if !cmd.Flags().Changed("seed") {
				seed = uint64(cfg.Bench.Seed)
			}
			if !cmd.Flags().Changed("workers") {
				workers = cfg.Bench.Workers
			}
			contenders, err := bench.Rules(ruleNames, seed)
			if err != nil {
				return err
			}
			for _, e := range expressions {
				name, src, ok := strings.Cut(e, "=")
				if !ok {
					name, src = "expr:"+e, e
				}
				c, err := bench.Expression(name, src)
				if err != nil {
					return fmt.Errorf("expression %q: %w", name, err)
				}
				contenders = append(contenders, c)
			}
			if len(contenders) == 0 {
				return fmt.Errorf("nothing to evaluate: give --rules or --expr")
			}

			logger.Info("benchmark started", "instances", len(instances), "scorers", len(contenders), "workers", workers)
			records, err := bench.Runner{
				Workers: workers,
				Options: engineOptions(maxTime),
				Logger:  logger,
			}.Run(cmd.Context(), instances, contenders)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create report: %w", err)
				}
				defer f.Close()
				w = f
			}
			return writeBenchReport(w, format, instances, records)
		},
	}

	cmd.Flags().StringSliceVar(&ruleNames, "rules", nil, "Comma-separated rules (default from config)")
	cmd.Flags().StringArrayVarP(&expressions, "expr", "e", nil, "Expression contender NAME=EXPRESSION (repeatable)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "Concurrent simulations")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "Seed for the Random rule")
	cmd.Flags().IntVar(&maxTime, "max-time", 0, "Clock limit (default from config)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Report format: text, csv, summary-csv")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().BoolVar(&oneBased, "one-based", false, "Machine numbers in text instances start at 1")

	return cmd
}

var reportFormats = map[string]func(w io.Writer, instances []*model.Instance, records []bench.Record) error{
	"text": report.WriteText,
	"csv": func(w io.Writer, _ []*model.Instance, records []bench.Record) error {
		return report.WriteCSV(w, records)
	},
	"summary-csv": func(w io.Writer, _ []*model.Instance, records []bench.Record) error {
		return report.WriteSummaryCSV(w, bench.Summarize(records))
	},
}

func writeBenchReport(w io.Writer, format string, instances []*model.Instance, records []bench.Record) error {
	return reportFormats[format](w, instances, records)
}

// loadInstances loads every path (file or directory) in order.
func loadInstances(paths []string, oneBased bool) ([]*model.Instance, error) {
	p := parserFor(oneBased)
	var out []*model.Instance
	seen := make(map[string]string)
	for _, path := range paths {
		insts, err := p.Load(path)
		if err != nil {
			return nil, err
		}
		for _, inst := range insts {
			if prev, dup := seen[inst.Name]; dup {
				return nil, fmt.Errorf("instance name %q used by both %s and %s", inst.Name, prev, path)
			}
			seen[inst.Name] = path
		}
		out = append(out, insts...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no instances found in %s", strings.Join(paths, ", "))
	}
	return out, nil
}
