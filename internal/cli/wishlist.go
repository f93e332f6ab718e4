package cli

import (
	"github.com/spf13/cobra"

	"github.com/KavinT06/anigas-attire-sub000/internal/domain"
)

func newWishlistCommand(e *env) *cobra.Command {
	wishlist := &cobra.Command{
		Use:   "wishlist",
		Short: "Manage saved products",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.setup(cmd); err != nil {
				return err
			}
			if err := e.requireLogin(cmd.Context()); err != nil {
				return err
			}
			return e.app.Wishlist.Load(cmd.Context(), false)
		},
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show the wishlist",
		Args:    exactArgs(0),
		RunE: func(_ *cobra.Command, _ []string) error {
			items := e.app.Wishlist.Items()
			if len(items) == 0 {
				e.printer.Info("Your wishlist is empty")
				return nil
			}
			t := e.printer.NewTable("PRODUCT", "NAME", "PRICE", "ADDED")
			for _, item := range items {
				name, price := "", ""
				if item.Product != nil {
					name = item.Product.Name
					price = money(item.Product.UnitPrice())
				}
				added := ""
				if !item.CreatedAt.IsZero() {
					added = item.CreatedAt.Local().Format("2006-01-02")
				}
				t.AddRow(item.ProductKey(), name, price, added)
			}
			return t.Render()
		},
	}

	var pf productFlags
	add := &cobra.Command{
		Use:   "add PRODUCT_ID",
		Short: "Save a product",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.app.Wishlist.Add(cmd.Context(), args[0], pf.snapshot(args[0])); err != nil {
				return err
			}
			e.printer.Success("Saved %s", args[0])
			return nil
		},
	}
	pf.register(add)

	remove := &cobra.Command{
		Use:     "remove PRODUCT_ID",
		Aliases: []string{"rm"},
		Short:   "Forget a saved product",
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.app.Wishlist.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			e.printer.Success("Removed %s", args[0])
			return nil
		},
	}

	var tf productFlags
	toggle := &cobra.Command{
		Use:   "toggle PRODUCT_ID",
		Short: "Save a product, or forget it when already saved",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			saved, err := e.app.Wishlist.Toggle(cmd.Context(), args[0], tf.snapshot(args[0]))
			if err != nil {
				return err
			}
			if saved {
				e.printer.Success("Saved %s", args[0])
			} else {
				e.printer.Success("Removed %s", args[0])
			}
			return nil
		},
	}
	tf.register(toggle)

	wishlist.AddCommand(list, add, remove, toggle)
	return wishlist
}

// snapshot returns nil when no product details were given.
func (f *productFlags) snapshot(id string) *domain.Product {
	if f.name == "" && f.price == 0 && f.image == "" {
		return nil
	}
	p := f.product(id)
	return &p
}
