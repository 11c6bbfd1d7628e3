package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/concilia/concilia/internal/database/repository"
)

func newExpensesCommand() *cobra.Command {
	var state, search string
	var limit int

	cmd := &cobra.Command{
		Use:   "expenses",
		Short: "List expense records, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			records, err := rt.expenses.List(cmd.Context(), repository.ExpenseFilters{
				State:  repository.ReconciliationState(state),
				Search: search,
				Limit:  limit,
			})
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("no expenses")
				return nil
			}
			for _, e := range records {
				fmt.Printf("%s  %s  %10s  %-20s  %s\n",
					e.ID, e.Date.Format("2006-01-02"), money(e.AmountCents), e.State, e.Description)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "filter by reconciliation state")
	cmd.Flags().StringVar(&search, "search", "", "filter by description substring")
	cmd.Flags().IntVar(&limit, "limit", 50, "max rows (0 = all)")
	return cmd
}

func newMovementsCommand() *cobra.Command {
	var state, search string
	var limit int

	cmd := &cobra.Command{
		Use:   "movements",
		Short: "List bank movements, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			movements, err := rt.movements.List(cmd.Context(), repository.MovementFilters{
				State:  repository.ReconciliationState(state),
				Search: search,
				Limit:  limit,
			})
			if err != nil {
				return err
			}
			if len(movements) == 0 {
				fmt.Println("no movements")
				return nil
			}
			for _, m := range movements {
				fmt.Printf("%s  %s  %10s  %-20s  %s\n",
					m.ID, m.Date.Format("2006-01-02"), money(m.AmountCents), m.State, m.DescriptionRaw)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "filter by reconciliation state")
	cmd.Flags().StringVar(&search, "search", "", "filter by description substring")
	cmd.Flags().IntVar(&limit, "limit", 50, "max rows (0 = all)")
	return cmd
}
