// Package cli implements the storefront command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"github.com/KavinT06/anigas-attire-sub000/internal/app"
	"github.com/KavinT06/anigas-attire-sub000/internal/config"
	"github.com/KavinT06/anigas-attire-sub000/internal/session"
	pkgconfig "github.com/KavinT06/anigas-attire-sub000/pkg/config"
	"github.com/KavinT06/anigas-attire-sub000/pkg/logger"
)

// skipApp marks commands that run without the storefront services.
const skipApp = "skip-app"

type rootFlags struct {
	envFile string
	color   string
	verbose bool
}

// env carries the state shared by one CLI invocation.
type env struct {
	stdout  io.Writer
	stderr  io.Writer
	flags   rootFlags
	cfg     *config.Config
	logger  *slog.Logger
	printer *Printer
	app     *app.App
}

// Run executes the CLI with args and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	e := &env{stdout: stdout, stderr: stderr}
	root := newRootCommand(e)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	e.finish(ctx, err == nil)

	if err == nil {
		return ExitSuccess
	}
	if e.printer == nil {
		e.printer = NewPrinter(stdout, stderr, false)
	}
	cliErr := toCLIError(err)
	e.printer.FormatError(cliErr)
	return cliErr.ExitCode
}

func newRootCommand(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:   "storefront",
		Short: "Anigas Attire storefront client",
		Long: `storefront is a command line client for the Anigas Attire store.

It keeps a local cart, syncs your wishlist, manages delivery addresses and
places orders against the store backend.

Example usage:
  storefront otp send --phone 9876543210
  storefront login --phone 9876543210 --otp 1234
  storefront cart add 42 --name "Block Print Dupatta" --price 799 --size M
  storefront orders checkout`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&e.flags.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().StringVar(&e.flags.color, "color", "auto", "color output: auto, always, or never")
	root.PersistentFlags().BoolVarP(&e.flags.verbose, "verbose", "v", false, "debug logging and client metrics")

	root.AddCommand(
		newOTPCommand(e),
		newLoginCommand(e),
		newLogoutCommand(e),
		newStatusCommand(e),
		newCartCommand(e),
		newWishlistCommand(e),
		newAddressCommand(e),
		newOrdersCommand(e),
		newDoctorCommand(e),
		newMockBackendCommand(e),
	)
	return root
}

func (e *env) setup(cmd *cobra.Command) error {
	mode, err := ParseColorMode(e.flags.color)
	if err != nil {
		return &CLIError{Summary: err.Error(), ExitCode: ExitUsageError}
	}
	e.printer = NewPrinter(e.stdout, e.stderr, resolveColors(mode, e.stdout))

	if err := pkgconfig.LoadDotEnv(e.flags.envFile); err != nil {
		return &CLIError{Summary: "could not read env file", Detail: err.Error(), ExitCode: ExitConfigError, Err: err}
	}
	cfg, err := config.Load()
	if err != nil {
		return &CLIError{Summary: "invalid configuration", Detail: err.Error(), ExitCode: ExitConfigError, Err: err}
	}
	e.cfg = cfg

	level := cfg.LogLevel
	if e.flags.verbose {
		level = "debug"
	}
	e.logger = logger.NewWithWriter("storefront", level, cfg.LogFormat, e.stderr)

	if cmd.Annotations[skipApp] != "" {
		return nil
	}
	a, err := app.New(cmd.Context(), cfg, e.logger)
	if err != nil {
		return &CLIError{Summary: "could not start the storefront", Detail: err.Error(), ExitCode: ExitConfigError, Err: err}
	}
	e.app = a
	return nil
}

// finish reports notices and metrics, then releases the app.
func (e *env) finish(ctx context.Context, succeeded bool) {
	if e.app == nil {
		return
	}
	for _, n := range e.app.Notices.Pending(ctx) {
		e.printer.Warning("%s", n.Message)
		if err := e.app.Notices.Dismiss(ctx, n.ID); err != nil {
			e.logger.DebugContext(ctx, "notice not dismissed", slog.String("notice", n.ID))
		}
	}
	if e.flags.verbose && succeeded {
		if err := e.printMetrics(); err != nil {
			e.logger.Warn("failed to gather metrics", slog.String("error", err.Error()))
		}
	}
	if err := e.app.Close(); err != nil {
		e.logger.Warn("shutdown incomplete", slog.String("error", err.Error()))
	}
	e.app = nil
}

// requireLogin fails unless the session guard lets the user through.
func (e *env) requireLogin(ctx context.Context) error {
	if e.app.Guard.Resolve(ctx) != session.Allow {
		return errLoginRequired
	}
	return nil
}

func (e *env) printMetrics() error {
	families, err := e.app.Gatherer().Gather()
	if err != nil {
		return err
	}
	e.printer.Header("Client metrics")
	t := e.printer.NewTable("METRIC", "LABELS", "VALUE")
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "storefront_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			t.AddRow(mf.GetName(), formatLabels(m.GetLabel()), formatValue(mf.GetType(), m))
		}
	}
	return t.Render()
}

func formatLabels(pairs []*dto.LabelPair) string {
	parts := make([]string, 0, len(pairs))
	for _, lp := range pairs {
		parts = append(parts, lp.GetName()+"="+lp.GetValue())
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func formatValue(kind dto.MetricType, m *dto.Metric) string {
	switch kind {
	case dto.MetricType_COUNTER:
		return fmt.Sprintf("%g", m.GetCounter().GetValue())
	case dto.MetricType_GAUGE:
		return fmt.Sprintf("%g", m.GetGauge().GetValue())
	case dto.MetricType_HISTOGRAM:
		h := m.GetHistogram()
		return fmt.Sprintf("n=%d sum=%.3fs", h.GetSampleCount(), h.GetSampleSum())
	default:
		return "-"
	}
}

// exactArgs wraps cobra.ExactArgs so argument errors exit with the usage code.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &CLIError{Summary: err.Error(), Suggestion: "see `" + cmd.CommandPath() + " --help`", ExitCode: ExitUsageError}
		}
		return nil
	}
}

var errNoAddress = errors.New("no delivery address")
