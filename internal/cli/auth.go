package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/KavinT06/anigas-attire-sub000/internal/recaptcha"
	"github.com/KavinT06/anigas-attire-sub000/internal/session"
)

// useCaptcha loads a token solved outside the CLI into the app's provider.
func (e *env) useCaptcha(token string) recaptcha.Provider {
	if holder, ok := e.app.Captcha.(*recaptcha.OneShot); ok && token != "" {
		holder.Set(token)
	}
	return e.app.Captcha
}

func newOTPCommand(e *env) *cobra.Command {
	otp := &cobra.Command{
		Use:   "otp",
		Short: "One-time passcode commands",
	}

	var phone, captcha string
	send := &cobra.Command{
		Use:   "send",
		Short: "Text a login code to a phone number",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.app.Auth.SendOTP(cmd.Context(), phone, e.useCaptcha(captcha)); err != nil {
				return err
			}
			e.printer.Success("Code sent to %s", phone)
			return nil
		},
	}
	send.Flags().StringVar(&phone, "phone", "", "phone number, digits only")
	send.Flags().StringVar(&captcha, "recaptcha", "", "verification token from the reCAPTCHA challenge")
	_ = send.MarkFlagRequired("phone")

	otp.AddCommand(send)
	return otp
}

func newLoginCommand(e *env) *cobra.Command {
	var phone, code, captcha string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with a phone number and one-time code",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := e.app.Auth.Login(cmd.Context(), phone, code, e.useCaptcha(captcha))
			if err != nil {
				return err
			}
			name := user.Name
			if user.Placeholder || name == "" {
				name = user.PhoneNumber
			}
			e.printer.Success("Logged in as %s", e.printer.Bold(name))
			return nil
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "phone number, digits only")
	cmd.Flags().StringVar(&code, "otp", "", "code received by text message")
	cmd.Flags().StringVar(&captcha, "recaptcha", "", "verification token from the reCAPTCHA challenge")
	_ = cmd.MarkFlagRequired("phone")
	_ = cmd.MarkFlagRequired("otp")
	return cmd
}

func newLogoutCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credentials",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.app.Auth.Logout(cmd.Context()); err != nil {
				return err
			}
			e.printer.Success("Logged out")
			return nil
		},
	}
}

func newStatusCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session, cart and wishlist state",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a := e.app

			e.printer.Header("Session")
			s := a.Sessions.Current()
			if a.Guard.Resolve(ctx) == session.Allow {
				e.printer.Print("status   %s", e.printer.Badge("logged in"))
				if s.User != nil {
					e.printer.Print("user     %s %s", s.User.Name, e.printer.Dim(s.User.PhoneNumber))
				}
			} else {
				e.printer.Print("status   %s", e.printer.Badge("logged out"))
			}
			e.printer.Print("refresh  %s", a.API.State())

			e.printer.Header("Cart")
			e.printer.Print("items    %d", a.Cart.TotalItems())
			e.printer.Print("total    %s", money(a.Cart.TotalPrice()))

			if s.LoggedIn {
				if err := a.Wishlist.Load(ctx, false); err != nil {
					e.logger.DebugContext(ctx, "wishlist unavailable", slog.String("error", err.Error()))
				}
				mode := "remote"
				if a.Wishlist.FallbackMode() {
					mode = "fallback"
				}
				e.printer.Header("Wishlist")
				e.printer.Print("items    %d", len(a.Wishlist.Items()))
				e.printer.Print("mode     %s", e.printer.Badge(mode))
			}
			return nil
		},
	}
}
