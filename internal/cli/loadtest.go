package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/okian/recap/internal/loadtest"
)

// Default load run settings.
const (
	defaultLoadCappers     = 500
	defaultLoadWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultLoadReplayEvery = 10
)

// NewLoadTestCommand creates the loadtest command.
func NewLoadTestCommand() *cobra.Command {
	cfg := loadtest.Config{}

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Drive a running server with concurrent intents and verify the board",
		Example: `  # Add 500 cappers with the default worker pool
  recap loadtest

  # Heavier run that removes what it added
  recap loadtest --cappers 5000 --workers 32 --cleanup`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			global := GetConfig(cmd.Context())
			cfg.BaseURL = global.ServerURL
			cfg.Timeout = global.RequestTimeout()
			_, err := loadtest.Run(cmd.Context(), &cfg, cmd.OutOrStdout())
			return err
		},
	}
	fs := cmd.Flags()
	fs.IntVar(&cfg.Cappers, "cappers", defaultLoadCappers, "Number of cappers to add")
	fs.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*defaultLoadWorkers, "Number of concurrent workers")
	fs.IntVar(&cfg.ReplayEvery, "replay-every", defaultLoadReplayEvery, "Replay every n-th add with its key (0 disables)")
	fs.BoolVar(&cfg.Cleanup, "cleanup", false, "Delete the added cappers at the end")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Log every failed request")
	return cmd
}
