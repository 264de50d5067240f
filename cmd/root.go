package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Rorical/c60chat/internal/app"
	"github.com/Rorical/c60chat/internal/config"
)

var rootOpts app.Options

var rootCmd = &cobra.Command{
	Use:   "c60",
	Short: "Themed terminal chat with a hosted model",
	Long: `c60 is a terminal chat client. Replies stream in as they are generated,
history is kept on this machine, and sending is limited to a number of
messages per rolling window.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: run the chat application
		return runChat(rootOpts)
	},
}

func runChat(opts app.Options) error {
	application, err := app.NewApplication(opts)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer application.Stop()

	if err := application.Start(); err != nil {
		return fmt.Errorf("application error: %w", err)
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := app.LoadConfig(rootOpts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&rootOpts.Profile, "profile", "p", "", "profile to use instead of the active one")
	flags.StringVar(&rootOpts.Store, "store", "", "storage backend: file, sqlite or memory")
	flags.StringVar(&rootOpts.DataDir, "data-dir", "", "data directory (default $C60_HOME or ~/.c60)")
	flags.StringVar(&rootOpts.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error")

	// Add subcommands
	rootCmd.AddCommand(profileCmd)
}
