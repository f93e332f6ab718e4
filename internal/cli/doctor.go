package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/KavinT06/anigas-attire-sub000/internal/mockbackend"
	"github.com/KavinT06/anigas-attire-sub000/pkg/health"
)

func newDoctorCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check local storage and backend connectivity",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), health.DefaultTimeout)
			defer cancel()

			resp := e.app.Health.Run(ctx)
			e.printer.Header("Health")
			t := e.printer.NewTable("CHECK", "STATUS", "CRITICAL", "LATENCY", "ERROR")
			for _, name := range resp.Names() {
				r := resp.Checks[name]
				critical := ""
				if r.Critical {
					critical = "yes"
				}
				t.AddRow(name, e.printer.Badge(string(r.Status)), critical, r.Latency.Round(time.Millisecond).String(), r.Error)
			}
			if err := t.Render(); err != nil {
				return err
			}
			e.printer.Print("overall  %s", e.printer.Badge(string(resp.Status)))
			if resp.Status == health.StatusDown {
				return &CLIError{Summary: "storefront is not healthy", ExitCode: ExitGeneral}
			}
			return nil
		},
	}
}

func newMockBackendCommand(e *env) *cobra.Command {
	var (
		addr            string
		otp             string
		omitRefresh     bool
		disableWishlist bool
	)
	cmd := &cobra.Command{
		Use:         "mock-backend",
		Short:       "Serve an in-memory store backend for local development",
		Args:        exactArgs(0),
		Annotations: map[string]string{skipApp: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = e.cfg.MockAddr
			}
			if otp == "" {
				otp = e.cfg.MockOTP
			}
			srv := mockbackend.New(mockbackend.Config{
				OTP:             otp,
				OmitRefresh:     omitRefresh,
				DisableWishlist: disableWishlist,
			}, e.logger)
			e.printer.Info("Mock backend listening on http://%s/api (OTP %s)", addr, otp)
			return srv.Serve(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default $MOCK_BACKEND_ADDR)")
	cmd.Flags().StringVar(&otp, "otp", "", "code every login must present (default $MOCK_BACKEND_OTP)")
	cmd.Flags().BoolVar(&omitRefresh, "omit-refresh", false, "issue access tokens only")
	cmd.Flags().BoolVar(&disableWishlist, "disable-wishlist", false, "answer 404 on every wishlist endpoint")
	return cmd
}
