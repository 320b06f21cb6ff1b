package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/me/dfjss/internal/generator"
	"github.com/me/dfjss/internal/parser"
	"github.com/me/dfjss/pkg/model"
)

func newGenerateCmd() *cobra.Command {
	var (
		params   = generator.DefaultParams()
		variants int
		outDir   string
		format   string
		oneBased bool
	)

	cmd := &cobra.Command{
		Use:   "generate <static-instance-file-or-dir>...",
		Short: "Derive dynamic instances from static ones",
		Long: `Add machine breakdowns, job cancellations, new jobs and optionally ETPC
constraints to static instances. Event times are drawn relative to 1.2 times
the SPT makespan of each static instance. The same seed yields the same output.

With a single input and a single variant and no --out, the instance is written
to stdout.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "yaml" {
				return fmt.Errorf("unknown format %q (want text or yaml)", format)
			}
			if variants < 1 {
				return fmt.Errorf("--variants must be at least 1")
			}
			statics, err := loadInstances(args, oneBased)
			if err != nil {
				return err
			}
			if outDir == "" && (len(statics) > 1 || variants > 1) {
				return fmt.Errorf("--out is required when generating more than one instance")
			}

			gen, err := generator.New(params, logger)
			if err != nil {
				return err
			}
			p := parserFor(oneBased)
			for _, static := range statics {
				base := strings.TrimSuffix(static.Name, filepath.Ext(static.Name))
				for k := range variants {
					name := fmt.Sprintf("%s_dyn%d", base, k+1)
					inst, err := gen.Generate(static, name)
					if err != nil {
						return err
					}
					if outDir == "" {
						return writeInstance(cmd.OutOrStdout(), p, format, inst)
					}
					if err := writeInstanceFile(p, format, filepath.Join(outDir, name), inst); err != nil {
						return err
					}
				}
			}
			logger.Info("instances generated", "count", len(statics)*variants, "dir", outDir)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVarP(&variants, "variants", "n", 1, "Dynamic variants per static instance")
	f.StringVarP(&outDir, "out", "o", "", "Output directory")
	f.StringVarP(&format, "format", "f", "text", "Output format: text or yaml")
	f.BoolVar(&oneBased, "one-based", false, "Machine numbers in text instances start at 1 (input and output)")
	f.Uint64Var(&params.Seed, "seed", params.Seed, "Random seed")
	f.Float64Var(&params.BreakdownProb, "breakdown-prob", params.BreakdownProb, "Probability of each candidate breakdown")
	f.Float64Var(&params.CancelProb, "cancel-prob", params.CancelProb, "Probability that a job is cancelled")
	f.Float64Var(&params.CreateProb, "create-prob", params.CreateProb, "Probability of each candidate new job")
	f.Float64Var(&params.MaxBreakdowns, "max-breakdowns", params.MaxBreakdowns, "Candidate breakdowns per machine, as a fraction of the job count")
	f.Float64Var(&params.MaxBreakdownTime, "max-breakdown-time", params.MaxBreakdownTime, "Breakdown time per machine, as a fraction of the horizon")
	f.Float64Var(&params.MaxAddedJobs, "max-added-jobs", params.MaxAddedJobs, "Candidate new jobs, as a fraction of the job count")
	f.Float64Var(&params.ETPCConstraints, "etpc", params.ETPCConstraints, "ETPC constraints, as a fraction of the job count")

	return cmd
}

func writeInstance(w io.Writer, p *parser.Parser, format string, inst *model.Instance) error {
	if format == "yaml" {
		return p.WriteDocument(w, inst)
	}
	return p.WriteText(w, inst)
}

func writeInstanceFile(p *parser.Parser, format, base string, inst *model.Instance) error {
	path := base + ".txt"
	if format == "yaml" {
		path = base + ".yaml"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create instance file: %w", err)
	}
	if err := writeInstance(f, p, format, inst); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
