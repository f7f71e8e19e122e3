package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// checkoutCmd represents the checkout command
var checkoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Place an order from the current cart",
	Long:  `Turn the cart into an order atomically: the order is recorded, stock is decremented and the cart is emptied in one step.`,
	RunE:  runCheckout,
}

func init() {
	rootCmd.AddCommand(checkoutCmd)
}

func runCheckout(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	order, err := client.Checkout()
	if err != nil {
		return fmt.Errorf("checkout failed: %w", err)
	}

	if IsJSONOutput() {
		return printJSON(order)
	}

	fmt.Printf("Order placed: %s\n\n", order.ID)

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Product", "Quantity")
	for _, item := range order.Items {
		table.Append(item.ProductID, fmt.Sprintf("%d", item.Quantity))
	}
	table.Render()

	fmt.Printf("\nTotal: %s\n", formatPrice(order.TotalCents))
	fmt.Printf("Placed at: %s\n", order.PlacedAt.Local().Format(time.RFC822))
	return nil
}
