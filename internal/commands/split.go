package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/concilia/concilia/internal/service"
)

func newSplitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Create, inspect and undo split reconciliations",
	}
	cmd.AddCommand(newSplitCreateCommand(), newSplitShowCommand(), newSplitUndoCommand())
	return cmd
}

func newSplitCreateCommand() *cobra.Command {
	var movementID, expenseID, createdBy, notes string
	var rawMembers []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Split one movement across expenses, or cover one expense with movements",
		Long: `Anchor on a movement (--movement) to split it across several expenses,
or on an expense (--expense) to cover it with several movements.
Each --member is id:amount or id:amount:payment-number, amount in currency
units, e.g. b1:150.00 or m2:120.00:2.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (movementID == "") == (expenseID == "") {
				return fmt.Errorf("exactly one of --movement or --expense is required")
			}
			members, err := parseMembers(rawMembers)
			if err != nil {
				return err
			}

			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			var groupID string
			if movementID != "" {
				g, err := rt.splitter.CreateOneToMany(cmd.Context(), movementID, members, createdBy, notes)
				if err != nil {
					return err
				}
				groupID = g.ID
			} else {
				g, err := rt.splitter.CreateManyToOne(cmd.Context(), expenseID, members, createdBy, notes)
				if err != nil {
					return err
				}
				groupID = g.ID
			}
			fmt.Printf("created split %s\n", groupID)
			return nil
		},
	}

	cmd.Flags().StringVar(&movementID, "movement", "", "anchor movement id")
	cmd.Flags().StringVar(&expenseID, "expense", "", "anchor expense id")
	cmd.Flags().StringArrayVar(&rawMembers, "member", nil, "member as id:amount[:payment-number] (repeatable)")
	cmd.Flags().StringVar(&createdBy, "by", "", "operator name")
	cmd.Flags().StringVar(&notes, "notes", "", "free-text notes")
	return cmd
}

func newSplitShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <split-id>",
		Short: "Show a split group and its members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			g, err := rt.splitter.GetSplit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			status := "active"
			if g.Closed {
				status = "closed"
			}
			fmt.Printf("split %s  %s  anchor %s %s  target %s  %s\n",
				g.ID, g.Type, g.AnchorKind, g.AnchorID, money(g.TargetCents), status)
			for _, m := range g.Members {
				fmt.Printf("  #%d %s %s  %s  %.2f%%", m.Position+1, m.EntityKind, m.EntityID,
					money(m.AllocatedCents), m.Percentage)
				if m.PaymentNumber > 0 {
					fmt.Printf("  payment %d", m.PaymentNumber)
				}
				fmt.Println()
			}
			if g.Notes != "" {
				fmt.Printf("  notes: %s\n", g.Notes)
			}
			return nil
		},
	}
}

func newSplitUndoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "undo <split-id>",
		Short: "Revert a split, returning all members to pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.splitter.Undo(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("undone split %s\n", args[0])
			return nil
		},
	}
}

func parseMembers(raw []string) ([]service.SplitMemberInput, error) {
	out := make([]service.SplitMemberInput, 0, len(raw))
	for _, r := range raw {
		parts := strings.Split(r, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("member %q: want id:amount or id:amount:payment-number", r)
		}
		cents, err := parseAmount(parts[1])
		if err != nil {
			return nil, fmt.Errorf("member %q: %w", r, err)
		}
		in := service.SplitMemberInput{EntityID: parts[0], AmountCents: cents}
		if len(parts) == 3 {
			n, err := strconv.Atoi(parts[2])
			if err != nil {
				return nil, fmt.Errorf("member %q: bad payment number: %w", r, err)
			}
			in.PaymentNumber = n
		}
		out = append(out, in)
	}
	return out, nil
}
