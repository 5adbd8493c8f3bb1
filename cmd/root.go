package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"localevents/config"
	"localevents/logger"
)

var rootCmd = &cobra.Command{
	Use:   "localevents",
	Short: "Local events API server",
	Long: `Backend for publishing local events: accounts, events with geocoded
addresses, comments, reports with moderation alerts and password reset mail.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

// loadConfig is shared by every subcommand.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.InitFromLevel(cfg.Logging.Level)
	return cfg, nil
}
