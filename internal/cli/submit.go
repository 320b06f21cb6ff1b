package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/dfjss/internal/parser"
)

// remoteResult is the part of the simulate response the CLI prints.
type remoteResult struct {
	RunID      string `json:"run_id"`
	Instance   string `json:"instance"`
	Scorer     string `json:"scorer"`
	State      string `json:"state"`
	Makespan   int    `json:"makespan"`
	Diagnostic string `json:"diagnostic"`
	Metrics    struct {
		IdleAvg     float64 `json:"idle_avg"`
		WaitAvg     float64 `json:"wait_avg"`
		Utilization float64 `json:"utilization"`
	} `json:"metrics"`
	ElapsedMs float64 `json:"elapsed_ms"`
	Gantt     string  `json:"gantt"`
}

func newSubmitCmd() *cobra.Command {
	var (
		sf       scorerFlags
		gantt    bool
		noSave   bool
		oneBased bool
	)

	cmd := &cobra.Command{
		Use:   "submit <instance>",
		Short: "Simulate an instance on a dfjss server",
		Long:  "Parse the instance locally, send it to the server's simulate endpoint and print the outcome.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := parserFor(oneBased).LoadFile(args[0])
			if err != nil {
				return err
			}

			body := map[string]any{
				"instance":   parser.NewDocument(inst),
				"rule":       sf.rule,
				"expression": sf.expression,
				"seed":       sf.seed,
				"max_time":   sf.maxTime,
				"persist":    !noSave,
			}
			path := "/api/v1/simulate"
			if gantt {
				path += "?gantt=true"
			}
			resp, err := client.Post(cmd.Context(), path, body)
			if err != nil {
				return fmt.Errorf("simulate: %w", err)
			}

			var res remoteResult
			if err := json.Unmarshal(resp.Data, &res); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			if res.RunID != "" {
				printf(cmd, "Run: %s\n", res.RunID)
			}
			printf(cmd, "%s => MS=%d, Idle_avg=%.2f, Wait_avg=%.2f, T=%.3fs [%s]\n",
				res.Scorer, res.Makespan, res.Metrics.IdleAvg, res.Metrics.WaitAvg, res.ElapsedMs/1000, res.State)
			if res.Diagnostic != "" {
				printf(cmd, "  %s\n", res.Diagnostic)
			}
			if res.Gantt != "" {
				printf(cmd, "\n%s", res.Gantt)
			}
			return nil
		},
	}

	sf.register(cmd)
	cmd.Flags().BoolVar(&gantt, "gantt", false, "Ask the server for a text Gantt chart")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Do not persist the run on the server")
	cmd.Flags().BoolVar(&oneBased, "one-based", false, "Machine numbers in text instances start at 1")

	return cmd
}
