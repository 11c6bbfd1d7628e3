package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/concilia/concilia/internal/database/repository"
)

func newFeedbackCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Record and inspect match decisions",
	}
	cmd.AddCommand(newFeedbackRecordCommand(), newFeedbackListCommand())
	return cmd
}

func newFeedbackRecordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "record <expense-id> <movement-id> <accepted|rejected>",
		Short: "Record a decision about a suggested pair",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var decision repository.Decision
			switch args[2] {
			case "accepted":
				decision = repository.DecisionAccepted
			case "rejected":
				decision = repository.DecisionRejected
			default:
				return fmt.Errorf("unknown decision %q, want accepted or rejected", args[2])
			}

			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			entry, err := rt.ledger.RecordFeedback(cmd.Context(), args[0], args[1], decision)
			if err != nil {
				return err
			}
			fmt.Printf("recorded %s for %s / %s (confidence %.2f)\n",
				entry.Decision, entry.ExpenseID, entry.MovementID, entry.Confidence)
			return nil
		},
	}
}

func newFeedbackListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show recent decisions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			entries, err := rt.feedback.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("no feedback recorded")
				return nil
			}
			for _, f := range entries {
				fmt.Printf("%s  %-12s  %s / %s  conf=%.2f (a=%.2f d=%.2f t=%.2f p=%.2f)\n",
					f.DecidedAt.Format("2006-01-02 15:04"), f.Decision,
					f.ExpenseID, f.MovementID, f.Confidence,
					f.AmountScore, f.DateScore, f.TextScore, f.PaymentScore)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "max entries (0 = all)")
	return cmd
}
