// Package cli holds the cobra command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"nudge/internal/app"
	"nudge/internal/config"
	"nudge/internal/logging"
	"nudge/internal/output"
	"nudge/internal/tui"
)

// App carries the global flags and the lazily built application.
type App struct {
	ConfigPath string
	UseFake    bool
	Format     string
	NoColor    bool

	cfg      config.Config
	logger   *slog.Logger
	closeLog func() error
	app      *app.Application
}

// NewRootCmd builds the command tree. Running it without a subcommand opens the TUI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&App{})
}

func newRootCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "nudge",
		Short:         "Save links and text, then read them back as a weekly digest",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Interactive capture with autosave
  nudge

  # Try everything against the in-memory backend
  nudge --fake

  # Scriptable commands
  nudge save https://go.dev/blog/range-functions --wait
  nudge list --format json
  nudge digest
`),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd, cmd.Name() == "nudge")
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.Close()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			session := a.app.NewSession()
			return tui.Run(cmd.Context(), session)
		},
	}

	cmd.PersistentFlags().StringVar(&a.ConfigPath, "config", "", "Path to a YAML config file (default: $NUDGE_CONFIG)")
	cmd.PersistentFlags().BoolVar(&a.UseFake, "fake", false, "Use the in-memory backend instead of the REST API")
	cmd.PersistentFlags().StringVar(&a.Format, "format", "table", "Output format (table|json|markdown)")
	cmd.PersistentFlags().BoolVar(&a.NoColor, "no-color", false, "Disable coloured output")

	cmd.AddCommand(newSaveCmd(a))
	cmd.AddCommand(newListCmd(a))
	cmd.AddCommand(newShowCmd(a))
	cmd.AddCommand(newPatchCmd(a))
	cmd.AddCommand(newDigestCmd(a))
	cmd.AddCommand(newPublishCmd(a))
	cmd.AddCommand(newHistoryCmd(a))
	cmd.AddCommand(newScheduleCmd(a))
	cmd.AddCommand(newFakeServerCmd(a))

	return cmd
}

// Execute runs the tree and prints a failure to stderr.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &App{}
	defer a.Close()

	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return 130
		}
		output.NewPrinter(stdout, stderr, output.FormatTable, output.UseColors(stderr)).Error("%s", describe(err))
		return 1
	}
	return 0
}

func (a *App) setup(cmd *cobra.Command, interactive bool) error {
	if a.ConfigPath != "" {
		a.cfg = config.LoadFile(a.ConfigPath)
	} else {
		a.cfg = config.Load()
	}
	if a.UseFake {
		a.cfg.API.UseFake = true
	}

	switch {
	case interactive && a.cfg.Logging.File == "":
		// the TUI owns the terminal
		a.logger = logging.Discard()
		a.closeLog = func() error { return nil }
	default:
		logger, closeLog, err := logging.Open(a.cfg.Logging.File, a.cfg.Logging.Level, a.cfg.Logging.Format)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.logger, a.closeLog = logger, closeLog
	}

	a.app = app.New(a.cfg, a.logger)
	a.logger.Debug("configuration loaded", "api", a.cfg.API.BaseURL, "fake", a.cfg.API.UseFake, "command", cmd.CommandPath())
	return nil
}

func (a *App) rebuild() *app.Application {
	if a.app != nil {
		_ = a.app.Close()
	}
	return app.New(a.cfg, a.logger)
}

// Close releases the application and the log file.
func (a *App) Close() error {
	var errs []error
	if a.app != nil {
		errs = append(errs, a.app.Close())
		a.app = nil
	}
	if a.closeLog != nil {
		errs = append(errs, a.closeLog())
		a.closeLog = nil
	}
	return errors.Join(errs...)
}

func (a *App) printer(cmd *cobra.Command) (*output.Printer, error) {
	format, err := output.ParseFormat(a.Format)
	if err != nil {
		return nil, err
	}
	colors := !a.NoColor && output.UseColors(cmd.OutOrStdout())
	return output.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), format, colors), nil
}
