package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newDigestCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "digest",
		Short: "Assemble this week's digest and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.printer(cmd)
			if err != nil {
				return err
			}

			d, err := a.app.BuildDigest(cmd.Context())
			if err != nil {
				if d.WeekStart.IsZero() {
					return fmt.Errorf("build digest: %w", err)
				}
				p.Warn("some items could not be loaded: %s", describe(err))
			}
			return p.Digest(d)
		},
	}
}

func newPublishCmd(a *App) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Send this week's digest to Telegram once",
		Long: `Send this week's digest to the configured Telegram chat.

A week is published at most once; running publish again for the same week is a no-op.
With --dry-run the digest is printed instead and nothing is recorded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.printer(cmd)
			if err != nil {
				return err
			}
			if err := a.app.Publish(cmd.Context(), cmd.OutOrStdout(), dryRun); err != nil {
				return err
			}
			if !dryRun {
				p.Success("digest processed for the week of %s", a.app.Now().Format("Jan 2"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the digest instead of sending it")

	return cmd
}

func newHistoryCmd(a *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List published digests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.printer(cmd)
			if err != nil {
				return err
			}
			records, err := a.app.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return p.History(records)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Number of weeks to show")

	return cmd
}

func newScheduleCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Publish the weekly digest on the configured cron schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			a.logger.Info("scheduler running", "cron", a.cfg.Scheduler.CronExpression, "timezone", a.app.Location().String())
			return a.app.RunScheduler(ctx)
		},
	}
}

func newFakeServerCmd(a *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "fake-server",
		Short: "Serve the in-memory backend over HTTP",
		Long: `Serve the in-memory backend over the same REST API the client uses.

Point another nudge at it with NUDGE_API_URL=http://<addr>.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
				a.app = a.rebuild()
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return a.app.ServeFake(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")

	return cmd
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
