package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/concilia/concilia/internal/database/repository"
)

func newSuggestCommand() *cobra.Command {
	var minConfidence float64
	var limit int

	cmd := &cobra.Command{
		Use:   "suggest <expense|movement> <id>",
		Short: "Rank match candidates for an entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			cands, err := rt.suggestions.Suggest(cmd.Context(), kind, args[1], minConfidence, limit)
			if err != nil {
				return err
			}
			if len(cands) == 0 {
				fmt.Println("no candidates above the confidence floor")
				return nil
			}
			for i, c := range cands {
				counterpart := c.MovementID
				if kind == repository.KindMovement {
					counterpart = c.ExpenseID
				}
				fmt.Printf("%2d. %s  conf=%.2f  (amount=%.2f date=%.2f text=%.2f payment=%.2f)  %dd apart\n",
					i+1, counterpart, c.Confidence,
					c.Breakdown.Amount, c.Breakdown.Date, c.Breakdown.Text, c.Breakdown.Payment,
					c.DaysApart)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&minConfidence, "min", 0.5, "confidence floor")
	cmd.Flags().IntVar(&limit, "limit", 10, "max candidates (0 = all)")
	return cmd
}

func parseKind(s string) (repository.EntityKind, error) {
	switch s {
	case "expense":
		return repository.KindExpense, nil
	case "movement":
		return repository.KindMovement, nil
	default:
		return "", fmt.Errorf("unknown kind %q, want expense or movement", s)
	}
}
