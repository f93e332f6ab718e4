package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/KavinT06/anigas-attire-sub000/internal/domain"
)

func newOrdersCommand(e *env) *cobra.Command {
	orders := &cobra.Command{
		Use:     "orders",
		Aliases: []string{"order"},
		Short:   "Order history and checkout",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.setup(cmd); err != nil {
				return err
			}
			return e.requireLogin(cmd.Context())
		},
	}

	var pageNum int
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show past orders, newest first",
		Args:    exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, err := e.app.Orders.ListPage(cmd.Context(), pageNum)
			if err != nil {
				return err
			}
			if len(page.Results) == 0 {
				e.printer.Info("No orders yet")
				return nil
			}
			t := e.printer.NewTable("ID", "PLACED", "STATUS", "ITEMS", "TOTAL")
			for _, o := range page.Results {
				t.AddRow(o.ID.String(), formatDate(o), o.Status, strconv.Itoa(len(o.Items)), money(float64(o.Total)))
			}
			if err := t.Render(); err != nil {
				return err
			}
			if page.Next != nil {
				e.printer.Print("%s", e.printer.Dim(fmt.Sprintf("%d orders in total, see --page %d for more", page.Count, max(pageNum, 1)+1)))
			}
			return nil
		},
	}
	list.Flags().IntVar(&pageNum, "page", 1, "page number")

	get := &cobra.Command{
		Use:   "get ID",
		Short: "Show one order",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := e.app.Orders.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return e.printOrder(o)
		},
	}

	var addressID string
	checkout := &cobra.Command{
		Use:   "checkout",
		Short: "Order everything in the cart",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			id, err := e.resolveAddress(ctx, addressID)
			if err != nil {
				return err
			}
			o, err := e.app.Orders.Checkout(ctx, id)
			if err != nil {
				return err
			}
			e.printer.Success("Order %s placed", e.printer.Bold(o.ID.String()))
			return e.printOrder(o)
		},
	}
	checkout.Flags().StringVar(&addressID, "address", "", "delivery address id (default: your default address)")

	orders.AddCommand(list, get, checkout)
	return orders
}

func (e *env) resolveAddress(ctx context.Context, id string) (string, error) {
	if id != "" {
		return id, nil
	}
	if _, err := e.app.Addresses.List(ctx); err != nil {
		return "", err
	}
	if def, ok := e.app.Addresses.Default(); ok {
		return def.ID.String(), nil
	}
	return "", &CLIError{
		Summary:    "no delivery address",
		Suggestion: "add one with `storefront address add` or pass --address",
		ExitCode:   ExitUsageError,
		Err:        errNoAddress,
	}
}

func (e *env) printOrder(o domain.Order) error {
	e.printer.Header("Order " + o.ID.String())
	e.printer.Print("status   %s", o.Status)
	e.printer.Print("placed   %s", formatDate(o))
	t := e.printer.NewTable("PRODUCT", "NAME", "SIZE", "QTY", "PRICE")
	for _, item := range o.Items {
		t.AddRow(item.ProductID.String(), item.Name, item.Size, strconv.Itoa(item.Quantity), money(float64(item.Price)))
	}
	if err := t.Render(); err != nil {
		return err
	}
	e.printer.Print("total    %s", e.printer.Bold(money(float64(o.Total))))
	return nil
}

func formatDate(o domain.Order) string {
	if o.CreatedAt.IsZero() {
		return "-"
	}
	return o.CreatedAt.Local().Format("2006-01-02 15:04")
}
