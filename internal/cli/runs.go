package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/me/dfjss/internal/report"
	"github.com/me/dfjss/pkg/model"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect runs stored on a dfjss server",
	}
	cmd.AddCommand(newRunsListCmd(), newRunsShowCmd(), newRunsDeleteCmd())
	return cmd
}

func newRunsListCmd() *cobra.Command {
	var (
		state    string
		instance string
		limit    int
		offset   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if state != "" {
				q.Set("state", state)
			}
			if instance != "" {
				q.Set("instance", instance)
			}
			q.Set("limit", strconv.Itoa(limit))
			q.Set("offset", strconv.Itoa(offset))

			resp, err := client.Get(cmd.Context(), "/api/v1/runs/?"+q.Encode())
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			var runs []model.Run
			if err := json.Unmarshal(resp.Data, &runs); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			if len(runs) == 0 {
				printf(cmd, "No runs found.\n")
				return nil
			}

			printf(cmd, "%-40s  %-10s  %-20s  %-20s  %8s  %s\n", "ID", "STATE", "INSTANCE", "SCORER", "MAKESPAN", "CREATED")
			for _, r := range runs {
				printf(cmd, "%-40s  %-10s  %-20s  %-20s  %8d  %s\n",
					r.ID, r.State, r.Instance, r.Scorer, r.Makespan, r.CreatedAt.Format("2006-01-02 15:04:05"))
			}

			if resp.Pagination != nil && resp.Pagination.HasMore {
				printf(cmd, "\n(%d of %d shown)\n", len(runs), resp.Pagination.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "Filter by state (COMPLETED, CAPPED, FAILED)")
	cmd.Flags().StringVar(&instance, "instance", "", "Filter by instance name")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to show (at most 100)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Runs to skip")

	return cmd
}

func newRunsShowCmd() *cobra.Command {
	var showOps bool

	cmd := &cobra.Command{
		Use:   "show <run_id>",
		Short: "Show one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get(cmd.Context(), "/api/v1/runs/"+url.PathEscape(args[0]))
			if err != nil {
				return fmt.Errorf("get run: %w", err)
			}

			var r model.Run
			if err := json.Unmarshal(resp.Data, &r); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			printf(cmd, "Run:       %s\n", r.ID)
			printf(cmd, "  Instance:  %s\n", r.Instance)
			printf(cmd, "  Scorer:    %s\n", r.Scorer)
			printf(cmd, "  State:     %s\n", r.State)
			if r.Diagnostic != "" {
				printf(cmd, "  Note:      %s\n", r.Diagnostic)
			}
			printf(cmd, "  Makespan:  %d\n", r.Makespan)
			printf(cmd, "  Idle avg:  %.2f\n", r.Metrics["idle_avg"])
			printf(cmd, "  Wait avg:  %.2f\n", r.Metrics["wait_avg"])
			printf(cmd, "  Jobs:      %d (cancelled %v)\n", r.Jobs, r.Cancelled)
			printf(cmd, "  Elapsed:   %s\n", r.Elapsed)
			printf(cmd, "  Created:   %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))

			if showOps && len(r.Schedule) > 0 {
				printf(cmd, "\n")
				return report.WriteSchedule(cmd.OutOrStdout(), r.Schedule)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showOps, "schedule", false, "List every completed operation")

	return cmd
}

func newRunsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run_id>",
		Short: "Delete a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := client.Delete(cmd.Context(), "/api/v1/runs/"+url.PathEscape(args[0])); err != nil {
				return fmt.Errorf("delete run: %w", err)
			}
			printf(cmd, "Deleted %s\n", args[0])
			return nil
		},
	}
}
