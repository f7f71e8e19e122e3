package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// stateCmd represents the state command
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the current world state",
	Long:  `Retrieve a consistent snapshot of the shop world: catalog size, cart, orders and revision.`,
	RunE:  runState,
}

func init() {
	rootCmd.AddCommand(stateCmd)
}

func runState(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	state, err := client.State()
	if err != nil {
		return fmt.Errorf("failed to fetch state: %w", err)
	}

	if IsJSONOutput() {
		return printJSON(state)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")

	table.Append([]string{"Revision", fmt.Sprintf("%d", state.Revision)})
	table.Append([]string{"Products", fmt.Sprintf("%d", len(state.Products))})
	table.Append([]string{"Cart lines", fmt.Sprintf("%d", len(state.Cart))})
	table.Append([]string{"Cart total", formatPrice(state.CartTotalCents())})
	table.Append([]string{"Orders", fmt.Sprintf("%d", len(state.Orders))})
	if state.LastCatalogSync.IsZero() {
		table.Append([]string{"Last catalog sync", "never"})
	} else {
		table.Append([]string{"Last catalog sync", state.LastCatalogSync.Local().Format(time.RFC822)})
	}

	table.Render()
	return nil
}
