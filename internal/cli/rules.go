package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/me/dfjss/internal/expr"
	"github.com/me/dfjss/internal/rules"
)

func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List dispatching rules and expression building blocks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, r := range rules.All() {
				printf(cmd, "  %-7s %s\n", r.Name, r.Description)
			}
			printf(cmd, "  %-7s %s\n", rules.RandomName, "uniform random priority (--seed)")
			printf(cmd, "\nExpression variables: %s\n", strings.Join(expr.Variables, " "))
			printf(cmd, "Expression functions: %s\n", strings.Join(expr.Functions, " "))
			return nil
		},
	}
}
