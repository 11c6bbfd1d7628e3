package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAutoCommand() *cobra.Command {
	var threshold float64
	var limit int

	cmd := &cobra.Command{
		Use:   "auto",
		Short: "Auto-reconcile pending movements above a confidence threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			if !cmd.Flags().Changed("threshold") {
				threshold = rt.cfg.Auto.Threshold
			}
			if !cmd.Flags().Changed("limit") {
				limit = rt.cfg.Auto.Limit
			}

			sum, err := rt.auto.RunBatch(cmd.Context(), threshold, limit)
			if err != nil {
				return err
			}
			for _, it := range sum.Items {
				switch it.Outcome {
				case "matched":
					fmt.Printf("matched   %s -> %s (%.2f)\n", it.MovementID, it.ExpenseID, it.Confidence)
				case "skipped":
					fmt.Printf("skipped   %s: %s\n", it.MovementID, it.Reason)
				default:
					fmt.Printf("no match  %s\n", it.MovementID)
				}
			}
			fmt.Printf("reviewed %d, matched %d, skipped %d, no candidate %d\n",
				sum.Reviewed, sum.Matched, sum.Skipped, sum.NoCandidate)
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0.85, "confidence threshold")
	cmd.Flags().IntVar(&limit, "limit", 200, "max movements to review (0 = all)")
	return cmd
}
