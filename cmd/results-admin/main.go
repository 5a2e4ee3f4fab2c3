package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/app"
	"github.com/noah-isme/sma-results-api/internal/service"
	"github.com/noah-isme/sma-results-api/pkg/config"
	"github.com/noah-isme/sma-results-api/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "results-admin",
		Short:         "Maintenance commands for the results database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCheckCmd(), newRepairCmd(), newTablesCmd())
	return root
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run every consistency check and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
				report, err := c.Consistency.RunChecks(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), report)
			})
		},
	}
}

func newRepairCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Remove duplicates, rewrite stale grades and delete orphaned results",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
				report, err := c.Consistency.Repair(ctx, service.RepairOptions{DryRun: dryRun})
				if report != nil {
					if writeErr := writeJSON(cmd.OutOrStdout(), report); writeErr != nil {
						return writeErr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would change without writing")
	return cmd
}

func newTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "Print the grading tables in effect",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
				return writeJSON(cmd.OutOrStdout(), c.Grading.Tables())
			})
		},
	}
}

func withContainer(ctx context.Context, run func(context.Context, *app.Container) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	container, err := app.New(ctx, cfg, logr)
	if err != nil {
		return err
	}
	defer container.Close()

	if err := run(ctx, container); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			logr.Warn("interrupted", zap.Error(err))
		}
		return err
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
