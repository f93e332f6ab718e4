package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/KavinT06/anigas-attire-sub000/internal/domain"
)

type productFlags struct {
	name     string
	price    float64
	image    string
	category string
}

func (f *productFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "product name")
	cmd.Flags().Float64Var(&f.price, "price", 0, "unit price")
	cmd.Flags().StringVar(&f.image, "image", "", "product image URL")
	cmd.Flags().StringVar(&f.category, "category", "", "product category")
}

func (f *productFlags) product(id string) domain.Product {
	return domain.Product{
		ID:         domain.FlexID(id),
		Name:       f.name,
		StartPrice: domain.Amount(f.price),
		Image:      f.image,
		Category:   domain.Category(f.category),
	}
}

func parseQuantity(s string) (int, error) {
	qty, err := strconv.Atoi(s)
	if err != nil {
		return 0, &CLIError{Summary: "quantity must be a whole number", Detail: err.Error(), ExitCode: ExitUsageError}
	}
	return qty, nil
}

func newCartCommand(e *env) *cobra.Command {
	cart := &cobra.Command{
		Use:   "cart",
		Short: "Manage the shopping cart",
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show the cart",
		Args:    exactArgs(0),
		RunE: func(_ *cobra.Command, _ []string) error {
			return e.printCart()
		},
	}

	var pf productFlags
	var size string
	var qty int
	add := &cobra.Command{
		Use:   "add PRODUCT_ID",
		Short: "Add a product to the cart",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.app.Cart.Add(cmd.Context(), pf.product(args[0]), size, qty); err != nil {
				return err
			}
			e.printer.Success("Added %d × %s (%s)", qty, pf.name, size)
			return nil
		},
	}
	pf.register(add)
	add.Flags().StringVar(&size, "size", "", "size")
	add.Flags().IntVar(&qty, "qty", 1, "quantity")
	_ = add.MarkFlagRequired("name")
	_ = add.MarkFlagRequired("size")

	update := &cobra.Command{
		Use:   "update PRODUCT_ID SIZE QUANTITY",
		Short: "Change a line quantity; zero removes the line",
		Args:  exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseQuantity(args[2])
			if err != nil {
				return err
			}
			if err := e.app.Cart.UpdateQuantity(cmd.Context(), args[0], args[1], n); err != nil {
				return err
			}
			e.printer.Success("Cart updated")
			return nil
		},
	}

	remove := &cobra.Command{
		Use:     "remove PRODUCT_ID SIZE",
		Aliases: []string{"rm"},
		Short:   "Remove a line from the cart",
		Args:    exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.app.Cart.Remove(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			e.printer.Success("Removed %s", domain.CartItemKey(args[0], args[1]))
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.app.Cart.Clear(cmd.Context()); err != nil {
				return err
			}
			e.printer.Success("Cart cleared")
			return nil
		},
	}

	cart.AddCommand(list, add, update, remove, clearCmd)
	return cart
}

func (e *env) printCart() error {
	items := e.app.Cart.Items()
	if len(items) == 0 {
		e.printer.Info("Your cart is empty")
		return nil
	}
	t := e.printer.NewTable("ID", "PRODUCT", "SIZE", "QTY", "PRICE", "SUBTOTAL")
	for _, item := range items {
		t.AddRow(item.ID, item.Name, item.Size, strconv.Itoa(item.Quantity), money(item.Price), money(item.Subtotal()))
	}
	if err := t.Render(); err != nil {
		return err
	}
	e.printer.Print("%d items, total %s", e.app.Cart.TotalItems(), e.printer.Bold(money(e.app.Cart.TotalPrice())))
	return nil
}
