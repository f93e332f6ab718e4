package cli

import (
	"github.com/spf13/cobra"

	"github.com/KavinT06/anigas-attire-sub000/internal/domain"
)

func newAddressCommand(e *env) *cobra.Command {
	address := &cobra.Command{
		Use:     "address",
		Aliases: []string{"addresses"},
		Short:   "Manage delivery addresses",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.setup(cmd); err != nil {
				return err
			}
			return e.requireLogin(cmd.Context())
		},
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show saved addresses",
		Args:    exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			addrs, err := e.app.Addresses.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(addrs) == 0 {
				e.printer.Info("No saved addresses")
				return nil
			}
			t := e.printer.NewTable("ID", "NAME", "ADDRESS", "PINCODE", "DEFAULT")
			for _, a := range addrs {
				def := ""
				if a.IsDefault {
					def = "yes"
				}
				line := a.Line1
				if a.Line2 != "" {
					line += ", " + a.Line2
				}
				t.AddRow(a.ID.String(), a.Name, line+", "+a.City+", "+a.State, a.Pincode, def)
			}
			return t.Render()
		},
	}

	var in domain.Address
	add := &cobra.Command{
		Use:   "add",
		Short: "Save a new address",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			created, err := e.app.Addresses.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			e.printer.Success("Saved address %s", e.printer.Bold(created.ID.String()))
			return nil
		},
	}
	addressFlags(add, &in)

	var patch domain.Address
	update := &cobra.Command{
		Use:   "update ID",
		Short: "Change fields of a saved address",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := e.app.Addresses.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			set := func(name string, dst *string, v string) {
				if flags.Changed(name) {
					*dst = v
				}
			}
			set("name", &current.Name, patch.Name)
			set("phone", &current.Phone, patch.Phone)
			set("line1", &current.Line1, patch.Line1)
			set("line2", &current.Line2, patch.Line2)
			set("city", &current.City, patch.City)
			set("state", &current.State, patch.State)
			set("pincode", &current.Pincode, patch.Pincode)
			set("country", &current.Country, patch.Country)
			if flags.Changed("default") {
				current.IsDefault = patch.IsDefault
			}

			updated, err := e.app.Addresses.Update(cmd.Context(), args[0], current)
			if err != nil {
				return err
			}
			e.printer.Success("Updated address %s", e.printer.Bold(updated.ID.String()))
			return nil
		},
	}
	addressFlags(update, &patch)

	remove := &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete an address",
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.app.Addresses.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			e.printer.Success("Deleted address %s", args[0])
			return nil
		},
	}

	setDefault := &cobra.Command{
		Use:   "default ID",
		Short: "Make an address the default",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			updated, err := e.app.Addresses.SetDefault(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			e.printer.Success("Default address is now %s", updated.ID.String())
			return nil
		},
	}

	address.AddCommand(list, add, update, remove, setDefault)
	return address
}

func addressFlags(cmd *cobra.Command, a *domain.Address) {
	f := cmd.Flags()
	f.StringVar(&a.Name, "name", "", "recipient name")
	f.StringVar(&a.Phone, "phone", "", "contact phone")
	f.StringVar(&a.Line1, "line1", "", "street address")
	f.StringVar(&a.Line2, "line2", "", "apartment, landmark")
	f.StringVar(&a.City, "city", "", "city")
	f.StringVar(&a.State, "state", "", "state")
	f.StringVar(&a.Pincode, "pincode", "", "six digit pincode")
	f.StringVar(&a.Country, "country", "India", "country")
	f.BoolVar(&a.IsDefault, "default", false, "use as the default address")
}
