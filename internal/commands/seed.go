package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/concilia/concilia/internal/testdata"
)

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load sample expenses and movements",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := testdata.Seed(cmd.Context(), testdata.Repos{
				Expenses:  rt.expenses,
				Movements: rt.movements,
			}); err != nil {
				return err
			}
			fmt.Println("sample data loaded")
			return nil
		},
	}
}

func newResetCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all data, keeping the schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to wipe the database without --yes")
			}
			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.maintenance.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("database reset")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the wipe")
	return cmd
}
