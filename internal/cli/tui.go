package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/recap/internal/adapters/tui"
	"github.com/okian/recap/pkg/logger"
)

// NewTUICommand creates the tui command.
func NewTUICommand() *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Edit the board in the terminal",
		Long: `Run the board in-process and edit it with the keyboard.

The terminal owns stdout, so logs are discarded unless --log-file is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				out = f
			}
			if err := logger.InitWithWriter(out); err != nil {
				return err
			}

			cfg := GetConfig(cmd.Context())
			_ = logger.SetLevelString(cfg.LogLevel)
			log := logger.Get()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, err := newService(cfg, log)
			if err != nil {
				return err
			}
			if err := svc.Start(ctx); err != nil {
				return fmt.Errorf("failed to start service: %w", err)
			}
			defer svc.Stop()

			return tui.Run(ctx, svc)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&logFile, "log-file", "", "Append logs to this file")
	addServiceFlags(fs)
	return cmd
}
