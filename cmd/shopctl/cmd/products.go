package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// productsCmd represents the products command
var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List catalog products",
	Long:  `Retrieve and display the product catalog held by the world, sorted by product ID.`,
	RunE:  runProducts,
}

func init() {
	rootCmd.AddCommand(productsCmd)
}

func runProducts(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	products, err := client.Products()
	if err != nil {
		return fmt.Errorf("failed to fetch products: %w", err)
	}

	if IsJSONOutput() {
		return printJSON(products)
	}

	if len(products) == 0 {
		fmt.Println("No products in the catalog")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Name", "Price", "Stock")

	for _, p := range products {
		table.Append(
			p.ID,
			p.Name,
			formatPrice(p.PriceCents),
			fmt.Sprintf("%d", p.Stock),
		)
	}

	table.Render()
	fmt.Printf("\nTotal products: %d\n", len(products))
	return nil
}
