// Package cli implements the disruptor command line.
package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"chaos-disruptor/internal/logger"
	"chaos-disruptor/pkg/disruptor"
)

var version = "dev"

// Execute は CLI を実行し、終了コードを返す
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:          "disruptor",
		Short:        "Disruptor - fault injection for guarded operations",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// エンジンのログも CLI のロガーとレベルに従わせる
			disruptor.SetLogger(logger.Default().Slog())

			if !cmd.Flags().Changed("log-level") {
				return nil
			}
			level, err := logger.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logger.SetLevel(level)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		validateCmd(),
		runCmd(),
		serveCmd(),
		presetsCmd(),
		versionCmd(),
	)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "disruptor version %s\n", version)
		},
	}
}
