package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "concilia",
		Short: "Expense and bank movement reconciliation",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newExpensesCommand(),
		newMovementsCommand(),
		newSuggestCommand(),
		newLinkCommand(),
		newUnlinkCommand(),
		newExcludeCommand(),
		newSplitCommand(),
		newAutoCommand(),
		newFeedbackCommand(),
		newStatusCommand(),
		newSeedCommand(),
		newResetCommand(),
	)

	return rootCmd
}
