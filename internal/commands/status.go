package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/concilia/concilia/internal/database/repository"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show reconciliation state counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			expCounts, err := rt.expenses.CountByState(cmd.Context())
			if err != nil {
				return err
			}
			movCounts, err := rt.movements.CountByState(cmd.Context())
			if err != nil {
				return err
			}

			states := []repository.ReconciliationState{
				repository.StatePending,
				repository.StateReconciled,
				repository.StatePartiallyReconciled,
				repository.StateNonReconcilable,
			}
			fmt.Printf("%-24s %10s %10s\n", "state", "expenses", "movements")
			for _, s := range states {
				fmt.Printf("%-24s %10d %10d\n", s, expCounts[s], movCounts[s])
			}
			return nil
		},
	}
}
