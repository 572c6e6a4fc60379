// Package cli provides the command-line interface for recap.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/recap/internal/config"
	"github.com/okian/recap/pkg/logger"
)

// Version information (set at build time).
var Version = "0.1.0"

// configKey is used to store config in context.
type configKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "recap",
		Short: "recap - editable capper leaderboard",
		Long: `recap keeps a ranked board of cappers and their units.

"serve" runs the board with its web page and JSON API, "tui" runs it in the
terminal, and the remaining commands talk to a running server.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			if err := logger.InitWithWriter(cmd.ErrOrStderr()); err != nil {
				return err
			}

			cfg, err := config.Load(cmd.Context(), cmd.Flags())
			if err != nil {
				return err
			}

			// Load has validated the level.
			_ = logger.SetLevelString(cfg.LogLevel)

			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("server-url", "", "Base URL of a running recap server")
	rootCmd.PersistentFlags().Int("request-timeout-ms", 0, "Client request timeout in milliseconds")

	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewTUICommand())
	rootCmd.AddCommand(NewShowCommand())
	rootCmd.AddCommand(NewAddCommand())
	rootCmd.AddCommand(NewEditCommand())
	rootCmd.AddCommand(NewRemoveCommand())
	rootCmd.AddCommand(NewExportCommand())
	rootCmd.AddCommand(NewImportCommand())
	rootCmd.AddCommand(NewLoadTestCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	return config.New(ctx)
}
