package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// clearPoisonCmd represents the clear-poison command
var clearPoisonCmd = &cobra.Command{
	Use:   "clear-poison",
	Short: "Clear a poisoned world",
	Long: `Reset the poison flag after an aborted mutation. The interrupted
message may have been applied partially, so inspect the state before
trusting it again.`,
	RunE: runClearPoison,
}

func init() {
	rootCmd.AddCommand(clearPoisonCmd)
}

func runClearPoison(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	cleared, err := client.ClearPoison()
	if err != nil {
		return fmt.Errorf("failed to clear poison: %w", err)
	}

	if cleared {
		fmt.Println("Poison cleared; verify the state before trusting it")
	} else {
		fmt.Println("World was not poisoned")
	}
	return nil
}
