package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLinkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "link <expense-id> <movement-id>",
		Short: "Reconcile one expense against one movement",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.ledger.LinkSimple(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("linked %s <-> %s (confidence %.2f)\n", res.ExpenseID, res.MovementID, res.Confidence)
			return nil
		},
	}
}

func newUnlinkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <expense|movement> <id>",
		Short: "Revert a simple link back to pending",
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

			if err := rt.ledger.Unlink(cmd.Context(), kind, args[1]); err != nil {
				return err
			}
			fmt.Printf("unlinked %s %s\n", args[0], args[1])
			return nil
		},
	}
}

func newExcludeCommand() *cobra.Command {
	var code, note string

	cmd := &cobra.Command{
		Use:   "exclude <expense-id>",
		Short: "Mark an expense non-reconcilable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.ledger.MarkNonReconcilable(cmd.Context(), args[0], code, note); err != nil {
				return err
			}
			fmt.Printf("excluded %s (%s)\n", args[0], code)
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "reason code (required)")
	_ = cmd.MarkFlagRequired("code")
	cmd.Flags().StringVar(&note, "note", "", "free-text reason")
	return cmd
}
