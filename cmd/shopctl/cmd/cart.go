package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/psantana5/appworld/internal/shop"
)

// cartCmd represents the cart command
var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Manage the shared cart",
	Long:  `Commands for adding to, removing from and inspecting the cart shared by every client of the world.`,
}

var cartQuantity int

// cartAddCmd represents the cart add command
var cartAddCmd = &cobra.Command{
	Use:   "add <product-id>",
	Short: "Add a product to the cart",
	Args:  cobra.ExactArgs(1),
	RunE:  runCartAdd,
}

// cartRemoveCmd represents the cart rm command
var cartRemoveCmd = &cobra.Command{
	Use:     "rm <product-id>",
	Aliases: []string{"remove"},
	Short:   "Remove a product from the cart",
	Args:    cobra.ExactArgs(1),
	RunE:    runCartRemove,
}

// cartShowCmd represents the cart show command
var cartShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the cart contents",
	RunE:  runCartShow,
}

func init() {
	rootCmd.AddCommand(cartCmd)
	cartCmd.AddCommand(cartAddCmd)
	cartCmd.AddCommand(cartRemoveCmd)
	cartCmd.AddCommand(cartShowCmd)

	cartAddCmd.Flags().IntVar(&cartQuantity, "qty", 1, "quantity to add")
}

func runCartAdd(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	resp, err := client.AddCartItem(args[0], cartQuantity)
	if err != nil {
		return fmt.Errorf("failed to add to cart: %w", err)
	}

	if IsJSONOutput() {
		return printJSON(resp)
	}

	fmt.Printf("Added %d x %s (revision %d)\n\n", cartQuantity, args[0], resp.Revision)
	return renderCart(resp.Cart)
}

func runCartRemove(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	if err := client.RemoveCartItem(args[0]); err != nil {
		return fmt.Errorf("failed to remove from cart: %w", err)
	}

	fmt.Printf("Removed %s from cart\n", args[0])
	return nil
}

func runCartShow(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	state, err := client.State()
	if err != nil {
		return fmt.Errorf("failed to fetch state: %w", err)
	}

	if IsJSONOutput() {
		return printJSON(state.Cart)
	}

	if err := renderCart(state.Cart); err != nil {
		return err
	}
	if len(state.Cart) > 0 {
		fmt.Printf("\nCart total: %s\n", formatPrice(state.CartTotalCents()))
	}
	return nil
}

func renderCart(cart []shop.CartItem) error {
	if len(cart) == 0 {
		fmt.Println("Cart is empty")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Product", "Quantity")

	for _, item := range cart {
		table.Append(item.ProductID, fmt.Sprintf("%d", item.Quantity))
	}

	table.Render()
	return nil
}
